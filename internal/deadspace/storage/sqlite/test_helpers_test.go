package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/banshee-data/deadspace/internal/db"
)

// setupRunDB returns a migrated run database in a per-test directory.
func setupRunDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database.DB
}

func testParams() RunParams {
	return RunParams{
		Version:          RunParamsVersion,
		TrainFrames:      500,
		MinSegmentFrames: 250,
		MinContourArea:   10000,
		OutputFPS:        60,
		LearningMode:     "frozen",
		Background:       BackgroundParamsExport{History: 500, VarThreshold: 16, DetectShadows: true, ShadowRatio: 0.5},
		Perception:       PerceptionParamsExport{KernelSize: 3, DilateIterations: 5, ThresholdCutoff: 175, GaussianSize: 5, GaussianSigma: 1.1, BoxSize: 5},
	}
}
