package sqlite

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertRun(t *testing.T, store *RunStore, id string, created time.Time) *Run {
	t.Helper()
	params := testParams()
	paramsJSON, err := params.ToJSON()
	require.NoError(t, err)
	run := &Run{
		RunID:      id,
		SourcePath: "/clips/" + id + ".mp4",
		Status:     StatusRunning,
		ParamsJSON: paramsJSON,
		CreatedAt:  created,
	}
	require.NoError(t, store.InsertRun(run))
	return run
}

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore(setupRunDB(t))
	created := time.Unix(1700000000, 123)
	insertRun(t, store, "run-a", created)

	got, err := store.GetRun("run-a")
	require.NoError(t, err)
	assert.Equal(t, "/clips/run-a.mp4", got.SourcePath)
	assert.Equal(t, StatusRunning, got.Status)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.OutputPath)

	params, err := ParseRunParams(got.ParamsJSON)
	require.NoError(t, err)
	if diff := cmp.Diff(testParams(), *params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStore_GetRun_NotFound(t *testing.T) {
	store := NewRunStore(setupRunDB(t))
	_, err := store.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStore_CompleteRun(t *testing.T) {
	store := NewRunStore(setupRunDB(t))
	insertRun(t, store, "run-c", time.Unix(100, 0))

	stats := &RunStats{
		OutputPath:     "/out/run-c.mp4",
		TotalFrames:    1000,
		TrainedFrames:  500,
		SegmentCount:   3,
		FramesRead:     1000,
		RetainedFrames: 300,
		DurationMs:     4200,
	}
	require.NoError(t, store.CompleteRun("run-c", stats, time.Unix(105, 0)))

	got, err := store.GetRun("run-c")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "/out/run-c.mp4", got.OutputPath)
	assert.Equal(t, 300, got.RetainedFrames)
	assert.Equal(t, 3, got.SegmentCount)
	assert.Equal(t, int64(4200), got.DurationMs)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, int64(105), got.CompletedAt.Unix())

	assert.ErrorIs(t, store.CompleteRun("nope", stats, time.Now()), ErrRunNotFound)
}

func TestRunStore_UpdateRunStatus(t *testing.T) {
	store := NewRunStore(setupRunDB(t))
	insertRun(t, store, "run-f", time.Unix(100, 0))

	require.NoError(t, store.UpdateRunStatus("run-f", StatusFailed, "decoder crashed", time.Unix(101, 0)))
	got, err := store.GetRun("run-f")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "decoder crashed", got.ErrorMessage)
}

func TestRunStore_ListRuns_NewestFirst(t *testing.T) {
	store := NewRunStore(setupRunDB(t))
	insertRun(t, store, "old", time.Unix(100, 0))
	insertRun(t, store, "new", time.Unix(300, 0))
	insertRun(t, store, "mid", time.Unix(200, 0))

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)

	runs, err = store.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunStore_Segments(t *testing.T) {
	store := NewRunStore(setupRunDB(t))
	insertRun(t, store, "run-s", time.Unix(100, 0))

	want := []*RunSegment{
		{RunID: "run-s", Ordinal: 0, Start: 0, Count: 250, Read: 250, Retained: 0},
		{RunID: "run-s", Ordinal: 1, Start: 250, Count: 250, Read: 200, Retained: 120, Short: true},
	}
	// Insert out of order; listing sorts by ordinal.
	require.NoError(t, store.InsertSegment(want[1]))
	require.NoError(t, store.InsertSegment(want[0]))

	got, err := store.ListSegments("run-s")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	assert.Error(t, store.InsertSegment(want[0]), "duplicate ordinal")
}

func TestRunStore_SegmentRequiresRun(t *testing.T) {
	store := NewRunStore(setupRunDB(t))
	err := store.InsertSegment(&RunSegment{RunID: "ghost", Ordinal: 0})
	assert.Error(t, err, "foreign key")
}

func TestRunStore_DeleteCascades(t *testing.T) {
	store := NewRunStore(setupRunDB(t))
	insertRun(t, store, "run-d", time.Unix(100, 0))
	require.NoError(t, store.InsertSegment(&RunSegment{RunID: "run-d", Ordinal: 0, Count: 10}))

	require.NoError(t, store.DeleteRun("run-d"))
	segs, err := store.ListSegments("run-d")
	require.NoError(t, err)
	assert.Empty(t, segs)
	assert.ErrorIs(t, store.DeleteRun("run-d"), ErrRunNotFound)
}

func TestParseRunParams_InvalidJSON(t *testing.T) {
	_, err := ParseRunParams([]byte("{not json"))
	assert.Error(t, err)
}
