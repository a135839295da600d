package l1frames

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScene_Source(t *testing.T) {
	scene := DefaultScene().WithMotion(2, 4)
	src := scene.Source(6, 25)

	r, err := src.Open(context.Background(), "synthetic")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 6, r.FrameCount())
	assert.Equal(t, scene.Size, r.Dimensions())
	assert.Equal(t, 25.0, r.FrameRate())

	frames, err := Collect(r)
	require.NoError(t, err)
	require.Len(t, frames, 6)

	blob := scene.BlobRect(3)
	at := func(f Frame) uint8 { return f.Image.(*image.RGBA).RGBAAt(blob.Min.X, blob.Min.Y).R }
	assert.Equal(t, scene.Background, at(frames[1]))
	assert.Equal(t, scene.Blob, at(frames[3]))
	assert.Equal(t, scene.Background, at(frames[4]))
}

func TestScene_BlobStaysInFrame(t *testing.T) {
	scene := DefaultScene().WithMotion(0, 500)
	bounds := image.Rect(0, 0, scene.Size.X, scene.Size.Y)
	for i := 0; i < 500; i += 7 {
		r := scene.BlobRect(i)
		if !r.In(bounds) {
			t.Fatalf("frame %d: blob %v outside %v", i, r, bounds)
		}
	}
}
