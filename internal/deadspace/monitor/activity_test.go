package monitor

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
)

func event(index int, active bool, fraction float64) pipeline.FrameEvent {
	ev := pipeline.FrameEvent{
		Frame:   l1frames.Frame{Index: index, Image: image.NewGray(image.Rect(0, 0, 8, 8))},
		Metrics: l3perception.MaskMetrics{ForegroundFraction: fraction},
	}
	ev.Result.Active = active
	if active {
		ev.Result.Regions = []l3perception.Contour{{
			Points: []image.Point{{1, 1}, {5, 1}, {5, 5}, {1, 5}},
			Bounds: image.Rect(1, 1, 6, 6),
			Pixels: 25,
		}}
	}
	return ev
}

func TestActivityRecorder_SamplesSortedByIndex(t *testing.T) {
	t.Parallel()

	r := NewActivityRecorder()
	var wg sync.WaitGroup
	for i := 9; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.FrameClassified(event(i, i%2 == 0, 0.1))
		}(i)
	}
	wg.Wait()

	samples := r.Samples()
	require.Len(t, samples, 10)
	for i, s := range samples {
		assert.Equal(t, i, s.Index)
	}
	assert.Equal(t, 1, samples[0].Regions)
	assert.InDelta(t, 16, samples[0].LargestArea, 1e-9)
	assert.Zero(t, samples[1].Regions)

	r.Reset()
	assert.Empty(t, r.Samples())
}

func TestSummarise(t *testing.T) {
	t.Parallel()

	var samples []ActivitySample
	for i := 0; i < 10; i++ {
		active := i >= 3 && i < 6
		frac := 0.0
		if active {
			frac = 0.3
		}
		samples = append(samples, ActivitySample{Index: i, Active: active, ForegroundFraction: frac})
	}

	got := Summarise(samples)
	assert.Equal(t, 10, got.Frames)
	assert.Equal(t, 3, got.ActiveFrames)
	assert.InDelta(t, 0.3, got.ActiveRatio, 1e-9)
	assert.InDelta(t, 0.09, got.MeanForeground, 1e-9)
	assert.Greater(t, got.StdForeground, 0.0)
	assert.InDelta(t, 0.3, got.P95Foreground, 1e-9)

	if diff := cmp.Diff([]Span{{Start: 3, End: 6}}, got.ActiveSpans); diff != "" {
		t.Errorf("active spans (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Span{{Start: 0, End: 3}, {Start: 6, End: 10}}, got.DeadSpans); diff != "" {
		t.Errorf("dead spans (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, got.DeadSpans[1].Len())
}

func TestSummarise_EdgeCases(t *testing.T) {
	t.Parallel()

	empty := Summarise(nil)
	assert.Zero(t, empty.Frames)
	assert.Nil(t, empty.ActiveSpans)

	one := Summarise([]ActivitySample{{Index: 4, Active: true, ForegroundFraction: 0.5}})
	assert.Equal(t, 0.5, one.MeanForeground)
	assert.Zero(t, one.StdForeground)
	assert.Equal(t, []Span{{Start: 4, End: 5}}, one.ActiveSpans)

	// A gap in capture indices splits a span even when activity is unchanged.
	gap := Summarise([]ActivitySample{{Index: 0, Active: true}, {Index: 1, Active: true}, {Index: 5, Active: true}})
	assert.Equal(t, []Span{{Start: 0, End: 2}, {Start: 5, End: 6}}, gap.ActiveSpans)
}

func TestActivityRecorder_MatchesPipelineOutput(t *testing.T) {
	scene := l1frames.DefaultScene().WithMotion(60, 90)
	scene.Size = image.Pt(64, 48)
	scene.BlobSize = 24
	src := scene.Source(120, 30)

	cfg := pipeline.DefaultConfig()
	cfg.TrainFrames = 30
	cfg.MinSegmentFrames = 20
	cfg.MinContourArea = 300

	rec := NewActivityRecorder()
	runner := pipeline.NewRunner(cfg, src, nil)
	runner.Observer = rec

	seq, err := runner.Run(context.Background(), "clip")
	require.NoError(t, err)

	sum := rec.Summary()
	assert.Equal(t, 120, sum.Frames, "every frame is observed once")
	assert.Equal(t, len(seq.Frames), sum.ActiveFrames)
	require.Len(t, sum.ActiveSpans, 1)
	assert.Equal(t, Span{Start: 60, End: 90}, sum.ActiveSpans[0])
}
