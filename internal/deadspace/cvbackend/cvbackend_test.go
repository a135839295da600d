//go:build gocv

package cvbackend

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/deadspace/l2background"
	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
	"github.com/banshee-data/deadspace/internal/testutil"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(l3perception.DefaultParams())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClassifier_RemovesSpeckle(t *testing.T) {
	c := newClassifier(t)
	mask := image.NewGray(image.Rect(0, 0, 40, 40))
	mask.SetGray(10, 10, color.Gray{Y: 255})

	out := c.RefineMask(mask)
	assert.Equal(t, mask.Bounds(), out.Bounds())
	assert.Zero(t, l3perception.ComputeMaskMetrics(out).ForegroundPixels)
}

func TestClassifier_BlobIsActive(t *testing.T) {
	c := newClassifier(t)
	mask := testutil.GrayRect(200, 200, image.Rect(40, 40, 160, 160), 255)

	res := c.Classify(c.RefineMask(mask), 10000)
	assert.True(t, res.Active)
	assert.Equal(t, 0, res.Trigger)
	require.Len(t, res.Regions, 1)
	assert.True(t, image.Rect(40, 40, 160, 160).In(res.Regions[0].Bounds))
}

func TestClassifier_ThresholdIsInclusive(t *testing.T) {
	c := newClassifier(t)
	// ContourArea of a filled 11x11 square traced through pixel centres.
	mask := testutil.GrayRect(30, 30, image.Rect(5, 5, 16, 16), 255)

	assert.True(t, c.Classify(mask, 100).Active)
	assert.False(t, c.Classify(mask, 100.5).Active)
}

func TestModel_DetectsBlobAfterTraining(t *testing.T) {
	scene := l1frames.DefaultScene().WithMotion(60, 80)
	src := scene.Source(80, 30)
	r, err := src.Open(context.Background(), "clip")
	require.NoError(t, err)
	defer r.Close()

	m := NewModel(l2background.DefaultParams())
	defer m.Close()

	_, err = m.Apply(l1frames.Frame{Image: scene.Frame(0)})
	assert.ErrorIs(t, err, l2background.ErrModelNotTrained)

	n, err := m.Train(context.Background(), r, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, n)
	assert.True(t, m.Trained())

	mask, err := m.Apply(l1frames.Frame{Index: 70, Image: scene.Frame(70)})
	require.NoError(t, err)
	blob := scene.BlobRect(70)
	centre := image.Pt((blob.Min.X+blob.Max.X)/2, (blob.Min.Y+blob.Max.Y)/2)
	assert.Equal(t, uint8(255), mask.GrayAt(centre.X, centre.Y).Y)
}

func TestBackend_Pipeline(t *testing.T) {
	scene := l1frames.DefaultScene().WithMotion(200, 300)
	cfg := pipeline.DefaultConfig()
	cfg.TrainFrames = 100
	cfg.MinSegmentFrames = 100
	cfg.MinContourArea = 2000

	runner := pipeline.NewRunner(cfg, scene.Source(400, 30), nil)
	runner.Backend = Backend{}
	seq, err := runner.Run(context.Background(), "clip")
	require.NoError(t, err)

	require.NotEmpty(t, seq.Frames)
	for _, idx := range seq.Indices() {
		assert.True(t, idx >= 200 && idx < 300, "frame %d retained outside the motion", idx)
	}
}
