package l2background

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/monitoring"
)

// Mask values written by Apply.
const (
	BackgroundValue = 0
	ShadowValue     = 127
	ForegroundValue = 255
)

var (
	// ErrModelNotTrained is returned when a model is asked to classify
	// before a training pass has consumed at least one frame.
	ErrModelNotTrained = errors.New("background model not trained")
	// ErrFrozen is returned when a snapshot is asked to train.
	ErrFrozen = errors.New("background model snapshot is read-only")
	// ErrFrameSize is returned for frames whose size differs from training.
	ErrFrameSize = errors.New("frame size does not match background model")
)

// Params configures the per-pixel model. Variances are in squared luma
// levels.
type Params struct {
	History         int     // frames the auto learning rate averages over, e.g. 500
	VarThreshold    float64 // squared distance in variances to call a pixel foreground, e.g. 16
	InitialVariance float64 // variance a pixel starts with on first observation, e.g. 15
	MinVariance     float64 // floor so perfectly static pixels still tolerate noise, e.g. 4
	MaxVariance     float64 // ceiling so flicker cannot swallow real motion, e.g. 75
	// LearningRate applies to Apply on a live model: < 0 selects the auto
	// rate 1/min(frames seen, History), 0 freezes statistics, (0,1] is a
	// fixed rate. Training always uses the auto rate.
	LearningRate float64
	// DetectShadows marks foreground pixels that are a darker copy of the
	// background (ratio in [ShadowRatio, 1)) with ShadowValue.
	DetectShadows bool
	ShadowRatio   float64
}

// DefaultParams mirrors the usual mixture-model defaults.
func DefaultParams() Params {
	return Params{
		History:         500,
		VarThreshold:    16,
		InitialVariance: 15,
		MinVariance:     4,
		MaxVariance:     75,
		LearningRate:    -1,
		DetectShadows:   true,
		ShadowRatio:     0.5,
	}
}

// Cell is the running luma statistic for one pixel.
type Cell struct {
	Mean     float32
	Variance float32
	Seen     uint32
}

// Model is a per-pixel running Gaussian background model.
//
// A live model serialises Train and Apply behind its mutex, so it may be
// shared by concurrent workers when online learning must continue; the
// resulting statistics then depend on scheduling. A Snapshot is read-only
// and needs no locking.
type Model struct {
	Params Params

	Width  int
	Height int
	Cells  []Cell // len = Width*Height, row-major

	mu         sync.Mutex
	trained    bool
	frozen     bool
	framesSeen int

	// Telemetry for the most recent Apply.
	foregroundCount atomic.Int64
	backgroundCount atomic.Int64
}

// NewModel returns an untrained model.
func NewModel(params Params) *Model {
	if params.History <= 0 {
		params.History = DefaultParams().History
	}
	if params.MinVariance <= 0 {
		params.MinVariance = DefaultParams().MinVariance
	}
	if params.MaxVariance < params.MinVariance {
		params.MaxVariance = params.MinVariance
	}
	if params.InitialVariance <= 0 {
		params.InitialVariance = DefaultParams().InitialVariance
	}
	return &Model{Params: params}
}

// Trained reports whether a training pass has completed with data.
func (m *Model) Trained() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trained
}

// Frozen reports whether m is a read-only snapshot.
func (m *Model) Frozen() bool { return m.frozen }

// LastCounts returns the foreground (including shadow) and background pixel
// counts of the most recent Apply.
func (m *Model) LastCounts() (foreground, background int64) {
	return m.foregroundCount.Load(), m.backgroundCount.Load()
}

// Train consumes up to maxFrames frames from r, updating every pixel. It
// stops early, without error, when r reports io.EOF. It returns the number
// of frames consumed.
func (m *Model) Train(ctx context.Context, r l1frames.Reader, maxFrames int) (int, error) {
	if m.frozen {
		return 0, ErrFrozen
	}
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
			monitoring.Tracef("[Background] training source exhausted after %d of %d frames", n, maxFrames)
			break
		}
		if err != nil {
			return n, fmt.Errorf("training read at frame %d: %w", n, err)
		}
		if err := m.learnLocked(f.Image); err != nil {
			return n, fmt.Errorf("training frame %d: %w", f.Index, err)
		}
		n++
	}

	if n > 0 {
		m.trained = true
	}
	monitoring.Logf("[Background] trained on %d frames (%dx%d)", n, m.Width, m.Height)
	return n, nil
}

// learnLocked folds one frame into every pixel at the auto rate.
func (m *Model) learnLocked(img image.Image) error {
	b := img.Bounds()
	if m.Cells == nil {
		m.Width, m.Height = b.Dx(), b.Dy()
		m.Cells = make([]Cell, m.Width*m.Height)
	}
	if b.Dx() != m.Width || b.Dy() != m.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), m.Width, m.Height)
	}

	m.framesSeen++
	alpha := m.autoRate()
	p := m.Params
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c := &m.Cells[y*m.Width+x]
			updateCell(c, luma(img, b.Min.X+x, b.Min.Y+y), alpha, p)
		}
	}
	return nil
}

func (m *Model) autoRate() float64 {
	n := m.framesSeen
	if n < 1 {
		n = 1
	}
	if n > m.Params.History {
		n = m.Params.History
	}
	return 1 / float64(n)
}

func updateCell(c *Cell, v, alpha float64, p Params) {
	if c.Seen == 0 {
		c.Mean = float32(v)
		c.Variance = float32(p.InitialVariance)
		c.Seen = 1
		return
	}
	d := v - float64(c.Mean)
	mean := float64(c.Mean) + alpha*d
	variance := float64(c.Variance) + alpha*(d*d-float64(c.Variance))
	if variance < p.MinVariance {
		variance = p.MinVariance
	}
	if variance > p.MaxVariance {
		variance = p.MaxVariance
	}
	c.Mean = float32(mean)
	c.Variance = float32(variance)
	if c.Seen < ^uint32(0) {
		c.Seen++
	}
}

// Apply returns the foreground mask of f against the current statistics.
// On a live model with a non-zero learning rate, background pixels are
// folded back into the model before returning.
func (m *Model) Apply(f l1frames.Frame) (*image.Gray, error) {
	if m.frozen {
		return m.classify(f.Image, false)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classify(f.Image, m.Params.LearningRate != 0)
}

func (m *Model) classify(img image.Image, learn bool) (*image.Gray, error) {
	if !m.trained {
		return nil, ErrModelNotTrained
	}
	b := img.Bounds()
	if b.Dx() != m.Width || b.Dy() != m.Height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), m.Width, m.Height)
	}

	alpha := 0.0
	if learn {
		m.framesSeen++
		alpha = m.Params.LearningRate
		if alpha < 0 {
			alpha = m.autoRate()
		}
		if alpha > 1 {
			alpha = 1
		}
	}

	p := m.Params
	mask := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	var fg, bg int64
	for y := 0; y < m.Height; y++ {
		row := mask.Pix[y*mask.Stride:]
		for x := 0; x < m.Width; x++ {
			c := &m.Cells[y*m.Width+x]
			v := luma(img, b.Min.X+x, b.Min.Y+y)
			d := v - float64(c.Mean)
			variance := float64(c.Variance)
			if variance < p.MinVariance {
				variance = p.MinVariance
			}

			if d*d <= p.VarThreshold*variance {
				row[x] = BackgroundValue
				bg++
				if learn {
					updateCell(c, v, alpha, p)
				}
				continue
			}

			fg++
			row[x] = ForegroundValue
			if p.DetectShadows && c.Mean > 0 {
				ratio := v / float64(c.Mean)
				if ratio >= p.ShadowRatio && ratio < 1 {
					row[x] = ShadowValue
				}
			}
		}
	}

	m.foregroundCount.Store(fg)
	m.backgroundCount.Store(bg)
	return mask, nil
}

// Snapshot returns a read-only deep copy of the trained statistics. Apply on
// the snapshot never learns, so one snapshot can be shared by any number of
// goroutines.
func (m *Model) Snapshot() (*Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.trained {
		return nil, ErrModelNotTrained
	}
	cells := make([]Cell, len(m.Cells))
	copy(cells, m.Cells)
	snap := &Model{
		Params:     m.Params,
		Width:      m.Width,
		Height:     m.Height,
		Cells:      cells,
		trained:    true,
		frozen:     true,
		framesSeen: m.framesSeen,
	}
	snap.Params.LearningRate = 0
	return snap, nil
}
