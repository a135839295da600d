package sqlite

import (
	"database/sql"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/deadspace/internal/timeutil"
)

// ErrNoActiveRun is returned by RecordSegment outside StartRun/CompleteRun.
var ErrNoActiveRun = errors.New("no active run")

// RunManager coordinates the lifecycle of one run at a time. It is safe for
// concurrent use.
type RunManager struct {
	mu         sync.RWMutex
	store      *RunStore
	clock      timeutil.Clock
	currentRun *Run
	segments   int
}

// NewRunManager creates a manager writing to db.
func NewRunManager(db *sql.DB) *RunManager {
	return NewRunManagerWithClock(db, timeutil.RealClock{})
}

// NewRunManagerWithClock creates a manager with an injected clock.
func NewRunManagerWithClock(db *sql.DB, clock timeutil.Clock) *RunManager {
	store := NewRunStore(db)
	store.clock = clock
	return &RunManager{store: store, clock: clock}
}

// Store exposes the underlying store for queries.
func (m *RunManager) Store() *RunStore { return m.store }

// StartRun records a new running run and returns its ID. A run still open
// from an earlier call is abandoned in the database as failed.
func (m *RunManager) StartRun(sourcePath string, params RunParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentRun != nil {
		prev := m.currentRun.RunID
		if err := m.store.UpdateRunStatus(prev, StatusFailed, "superseded by a new run", m.clock.Now()); err != nil {
			log.Printf("[RunManager] Failed to close superseded run %s: %v", prev, err)
		}
		m.currentRun = nil
	}

	paramsJSON, err := params.ToJSON()
	if err != nil {
		return "", err
	}

	run := &Run{
		RunID:      uuid.New().String(),
		SourcePath: sourcePath,
		Status:     StatusRunning,
		ParamsJSON: paramsJSON,
		CreatedAt:  m.clock.Now(),
	}
	if err := m.store.InsertRun(run); err != nil {
		return "", err
	}

	m.currentRun = run
	m.segments = 0
	log.Printf("[RunManager] Started run %s for %s", run.RunID, sourcePath)
	return run.RunID, nil
}

// RecordSegment stores one segment outcome under the current run.
func (m *RunManager) RecordSegment(seg RunSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentRun == nil {
		return ErrNoActiveRun
	}
	seg.RunID = m.currentRun.RunID
	if err := m.store.InsertSegment(&seg); err != nil {
		return err
	}
	m.segments++
	return nil
}

// CompleteRun finalizes the current run. Zero segment count and duration
// are filled from what the manager observed.
func (m *RunManager) CompleteRun(stats RunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentRun == nil {
		return nil
	}

	now := m.clock.Now()
	if stats.SegmentCount == 0 {
		stats.SegmentCount = m.segments
	}
	if stats.DurationMs == 0 {
		stats.DurationMs = now.Sub(m.currentRun.CreatedAt).Milliseconds()
	}
	if err := m.store.CompleteRun(m.currentRun.RunID, &stats, now); err != nil {
		return err
	}

	log.Printf("[RunManager] Completed run %s: %d/%d frames retained across %d segments in %dms",
		m.currentRun.RunID, stats.RetainedFrames, stats.FramesRead, stats.SegmentCount, stats.DurationMs)
	m.currentRun = nil
	return nil
}

// FailRun marks the current run as failed with an error message.
func (m *RunManager) FailRun(errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentRun == nil {
		return nil
	}
	if err := m.store.UpdateRunStatus(m.currentRun.RunID, StatusFailed, errMsg, m.clock.Now()); err != nil {
		return err
	}

	log.Printf("[RunManager] Failed run %s: %s", m.currentRun.RunID, errMsg)
	m.currentRun = nil
	return nil
}

// IsRunActive reports whether a run is open.
func (m *RunManager) IsRunActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentRun != nil
}

// CurrentRunID returns the open run's ID, or "".
func (m *RunManager) CurrentRunID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.currentRun == nil {
		return ""
	}
	return m.currentRun.RunID
}
