package l1frames

import (
	"image"
	"image/color"
)

// Scene is a synthetic clip: a flat gray background with a bright square
// that moves across it for frames in [MotionStart, MotionEnd).
type Scene struct {
	Size       image.Point
	Background uint8
	Blob       uint8
	BlobSize   int
	// MotionStart and MotionEnd bound the active frames. An empty range
	// gives a clip with no motion at all.
	MotionStart int
	MotionEnd   int
}

// DefaultScene is small enough for fast runs while leaving a blob that
// comfortably clears a 2000 pixel contour threshold after refinement.
func DefaultScene() Scene {
	return Scene{
		Size:       image.Pt(160, 120),
		Background: 40,
		Blob:       230,
		BlobSize:   60,
	}
}

// WithMotion returns a copy of s that is active over [start, end).
func (s Scene) WithMotion(start, end int) Scene {
	s.MotionStart, s.MotionEnd = start, end
	return s
}

// Active reports whether frame i contains the blob.
func (s Scene) Active(i int) bool {
	return i >= s.MotionStart && i < s.MotionEnd
}

// BlobRect returns the blob's bounds in frame i, or the empty rectangle.
func (s Scene) BlobRect(i int) image.Rectangle {
	if !s.Active(i) {
		return image.Rectangle{}
	}
	span := s.Size.X - s.BlobSize
	if span < 1 {
		span = 1
	}
	x := ((i - s.MotionStart) * 3) % span
	y := (s.Size.Y - s.BlobSize) / 2
	return image.Rect(x, y, x+s.BlobSize, y+s.BlobSize)
}

// Frame renders frame i as RGBA.
func (s Scene) Frame(i int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, s.Size.X, s.Size.Y))
	bg := color.RGBA{R: s.Background, G: s.Background, B: s.Background, A: 255}
	fg := color.RGBA{R: s.Blob, G: s.Blob, B: s.Blob, A: 255}
	blob := s.BlobRect(i)
	for y := 0; y < s.Size.Y; y++ {
		for x := 0; x < s.Size.X; x++ {
			if image.Pt(x, y).In(blob) {
				img.SetRGBA(x, y, fg)
			} else {
				img.SetRGBA(x, y, bg)
			}
		}
	}
	return img
}

// Generator adapts Frame to MemorySource.
func (s Scene) Generator() Generator {
	return s.Frame
}

// Source returns a MemorySource of count frames of s.
func (s Scene) Source(count int, fps float64) *MemorySource {
	return &MemorySource{Count: count, Size: s.Size, FPS: fps, Generate: s.Generator()}
}
