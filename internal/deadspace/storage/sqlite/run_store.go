package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/deadspace/internal/timeutil"
)

// ErrRunNotFound is returned by GetRun for unknown IDs.
var ErrRunNotFound = errors.New("run not found")

// RunStore persists runs and their segments.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore backed by db. The schema must already be
// migrated.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db, clock: timeutil.RealClock{}}
}

// InsertRun creates a run row.
func (s *RunStore) InsertRun(run *Run) error {
	query := `
		INSERT INTO deadspace_runs (
			run_id, source_path, output_path, status, params_json, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	return retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(query,
			run.RunID,
			run.SourcePath,
			nullString(run.OutputPath),
			run.Status,
			string(run.ParamsJSON),
			nullString(run.ErrorMessage),
			run.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}

// InsertSegment records one segment outcome.
func (s *RunStore) InsertSegment(seg *RunSegment) error {
	query := `
		INSERT INTO deadspace_run_segments (
			run_id, ordinal, start_frame, frame_count, frames_read, retained_frames, short_read
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	return retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(query,
			seg.RunID, seg.Ordinal, seg.Start, seg.Count, seg.Read, seg.Retained, boolToInt(seg.Short),
		)
		if err != nil {
			return fmt.Errorf("insert run segment %d: %w", seg.Ordinal, err)
		}
		return nil
	})
}

// CompleteRun marks a run completed and writes its totals.
func (s *RunStore) CompleteRun(runID string, stats *RunStats, completedAt time.Time) error {
	query := `
		UPDATE deadspace_runs SET
			status = ?,
			output_path = ?,
			completed_at = ?,
			total_frames = ?,
			trained_frames = ?,
			segment_count = ?,
			frames_read = ?,
			retained_frames = ?,
			duration_ms = ?
		WHERE run_id = ?
	`
	return retryOnBusy(s.clock, func() error {
		res, err := s.db.Exec(query,
			StatusCompleted,
			nullString(stats.OutputPath),
			completedAt.UnixNano(),
			stats.TotalFrames,
			stats.TrainedFrames,
			stats.SegmentCount,
			stats.FramesRead,
			stats.RetainedFrames,
			stats.DurationMs,
			runID,
		)
		if err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
		return requireOneRow(res, runID)
	})
}

// UpdateRunStatus sets status and error message.
func (s *RunStore) UpdateRunStatus(runID, status, errMsg string, at time.Time) error {
	query := `UPDATE deadspace_runs SET status = ?, error_message = ?, completed_at = ? WHERE run_id = ?`
	return retryOnBusy(s.clock, func() error {
		res, err := s.db.Exec(query, status, nullString(errMsg), at.UnixNano(), runID)
		if err != nil {
			return fmt.Errorf("update run status: %w", err)
		}
		return requireOneRow(res, runID)
	})
}

const runColumns = `
	run_id, source_path, output_path, status, params_json, error_message,
	created_at, completed_at, total_frames, trained_frames, segment_count,
	frames_read, retained_frames, duration_ms
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                Run
		outputPath, errMsg sql.NullString
		paramsJSON         string
		createdAt          int64
		completedAt        sql.NullInt64
	)
	err := row.Scan(
		&run.RunID, &run.SourcePath, &outputPath, &run.Status, &paramsJSON, &errMsg,
		&createdAt, &completedAt, &run.TotalFrames, &run.TrainedFrames, &run.SegmentCount,
		&run.FramesRead, &run.RetainedFrames, &run.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	run.OutputPath = outputPath.String
	run.ErrorMessage = errMsg.String
	run.ParamsJSON = []byte(paramsJSON)
	run.CreatedAt = time.Unix(0, createdAt)
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64)
		run.CompletedAt = &t
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM deadspace_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM deadspace_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListSegments returns a run's segments in ordinal order.
func (s *RunStore) ListSegments(runID string) ([]*RunSegment, error) {
	rows, err := s.db.Query(`
		SELECT run_id, ordinal, start_frame, frame_count, frames_read, retained_frames, short_read
		FROM deadspace_run_segments
		WHERE run_id = ?
		ORDER BY ordinal
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run segments: %w", err)
	}
	defer rows.Close()

	var segs []*RunSegment
	for rows.Next() {
		var seg RunSegment
		var short int
		if err := rows.Scan(&seg.RunID, &seg.Ordinal, &seg.Start, &seg.Count, &seg.Read, &seg.Retained, &short); err != nil {
			return nil, fmt.Errorf("scan run segment: %w", err)
		}
		seg.Short = short != 0
		segs = append(segs, &seg)
	}
	return segs, rows.Err()
}

// DeleteRun removes a run and, by cascade, its segments.
func (s *RunStore) DeleteRun(runID string) error {
	res, err := s.db.Exec(`DELETE FROM deadspace_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return requireOneRow(res, runID)
}

func requireOneRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
