//go:build gocv

package cvbackend

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/deadspace/l2background"
	"github.com/banshee-data/deadspace/internal/monitoring"
)

// Model wraps an OpenCV MOG2 subtractor. The subtractor always learns at
// OpenCV's automatic rate and cannot be copied, so every worker shares it
// behind the mutex.
type Model struct {
	mu      sync.Mutex
	mog     gocv.BackgroundSubtractorMOG2
	size    image.Point
	trained bool
	closed  bool
}

// NewModel builds a subtractor from the history, variance threshold and
// shadow settings of p.
func NewModel(p l2background.Params) *Model {
	history := p.History
	if history <= 0 {
		history = l2background.DefaultParams().History
	}
	return &Model{mog: gocv.NewBackgroundSubtractorMOG2WithParams(history, p.VarThreshold, p.DetectShadows)}
}

// Trained reports whether Train consumed at least one frame.
func (m *Model) Trained() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trained
}

// Train feeds up to maxFrames frames to the subtractor, stopping early at
// the end of the clip.
func (m *Model) Train(ctx context.Context, r l1frames.Reader, maxFrames int) (int, error) {
	if maxFrames <= 0 {
		return 0, fmt.Errorf("training frame cap must be positive, got %d", maxFrames)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for n < maxFrames {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		f, err := r.Read()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("training read at frame %d: %w", n, err)
		}
		if _, err := m.applyLocked(f.Image); err != nil {
			return n, fmt.Errorf("training frame %d: %w", f.Index, err)
		}
		n++
	}
	if n > 0 {
		m.trained = true
	}
	monitoring.Logf("[OpenCV] MOG2 trained on %d frames (%dx%d)", n, m.size.X, m.size.Y)
	return n, nil
}

// Apply returns the MOG2 mask of f: 0 background, 127 shadow, 255
// foreground.
func (m *Model) Apply(f l1frames.Frame) (*image.Gray, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.trained {
		return nil, l2background.ErrModelNotTrained
	}
	return m.applyLocked(f.Image)
}

func (m *Model) applyLocked(img image.Image) (*image.Gray, error) {
	if m.closed {
		return nil, errors.New("opencv model closed")
	}
	b := img.Bounds()
	if m.size == (image.Point{}) {
		m.size = b.Size()
	}
	if b.Size() != m.size {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", l2background.ErrFrameSize, b.Dx(), b.Dy(), m.size.X, m.size.Y)
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	m.mog.Apply(src, &dst)
	return matToGray(dst)
}

// Close releases the subtractor.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.mog.Close()
}

// matToGray copies a single-channel Mat into a Go image.
func matToGray(m gocv.Mat) (*image.Gray, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mask: %w", err)
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}
	return l2background.Luma(img), nil
}
