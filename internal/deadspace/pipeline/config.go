package pipeline

import (
	"fmt"

	"github.com/banshee-data/deadspace/internal/deadspace/l2background"
	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
	"github.com/banshee-data/deadspace/internal/deadspace/storage/sqlite"
)

// LearningMode selects how segment workers share the background model.
type LearningMode string

const (
	// LearningFrozen gives every worker the same read-only snapshot of the
	// trained model. Results are deterministic.
	LearningFrozen LearningMode = "frozen"
	// LearningShared lets workers keep updating the live model, serialised
	// behind its mutex. Results depend on scheduling.
	LearningShared LearningMode = "shared"
)

// Config holds the tunables for one run.
type Config struct {
	// TrainFrames caps how many opening frames train the background model.
	// Training stops early, without error, if the clip is shorter.
	TrainFrames int

	// MinSegmentFrames is the floor for every segment except the last.
	MinSegmentFrames int

	// MinContourArea is the inclusive area a single external contour must
	// reach for its frame to be retained.
	MinContourArea float64

	// OutputFPS is the frame rate of the exported video. Zero uses the
	// source rate.
	OutputFPS float64

	// MaxWorkers bounds concurrently running segment workers. Zero runs
	// every segment at once.
	MaxWorkers int

	LearningMode LearningMode
	Background   l2background.Params
	Perception   l3perception.Params
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TrainFrames:      500,
		MinSegmentFrames: 250,
		MinContourArea:   10000,
		OutputFPS:        60,
		LearningMode:     LearningFrozen,
		Background:       l2background.DefaultParams(),
		Perception:       l3perception.DefaultParams(),
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.TrainFrames < 1 {
		return fmt.Errorf("train frames must be >= 1, got %d", c.TrainFrames)
	}
	if c.MinSegmentFrames < 1 {
		return fmt.Errorf("%w: minimum segment %d < 1", ErrInvalidSegmentPlan, c.MinSegmentFrames)
	}
	if c.MinContourArea < 0 {
		return fmt.Errorf("min contour area must be non-negative, got %v", c.MinContourArea)
	}
	if c.OutputFPS < 0 {
		return fmt.Errorf("output fps must be non-negative, got %v", c.OutputFPS)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max workers must be non-negative, got %d", c.MaxWorkers)
	}
	switch c.LearningMode {
	case LearningFrozen, LearningShared:
	default:
		return fmt.Errorf("unknown learning mode %q", c.LearningMode)
	}
	if err := c.Perception.Validate(); err != nil {
		return fmt.Errorf("perception: %w", err)
	}
	return nil
}

// RunParams exports the configuration for run history.
func (c Config) RunParams() sqlite.RunParams {
	b, p := c.Background, c.Perception
	return sqlite.RunParams{
		Version:          sqlite.RunParamsVersion,
		TrainFrames:      c.TrainFrames,
		MinSegmentFrames: c.MinSegmentFrames,
		MinContourArea:   c.MinContourArea,
		OutputFPS:        c.OutputFPS,
		MaxWorkers:       c.MaxWorkers,
		LearningMode:     string(c.LearningMode),
		Background: sqlite.BackgroundParamsExport{
			History:         b.History,
			VarThreshold:    b.VarThreshold,
			InitialVariance: b.InitialVariance,
			MinVariance:     b.MinVariance,
			MaxVariance:     b.MaxVariance,
			LearningRate:    b.LearningRate,
			DetectShadows:   b.DetectShadows,
			ShadowRatio:     b.ShadowRatio,
		},
		Perception: sqlite.PerceptionParamsExport{
			KernelSize:       p.KernelSize,
			DilateIterations: p.DilateIterations,
			ThresholdCutoff:  int(p.ThresholdCutoff),
			GaussianSize:     p.GaussianSize,
			GaussianSigma:    float64(p.GaussianSigma),
			BoxSize:          p.BoxSize,
		},
	}
}
