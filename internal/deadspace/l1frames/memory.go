package l1frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
)

// ErrClosed is returned by in-memory handles used after Close.
var ErrClosed = errors.New("frame handle closed")

// Generator renders the frame at index. It must be deterministic and safe
// for concurrent use; MemorySource calls it from every open handle.
type Generator func(index int) image.Image

// MemorySource is an Opener over a synthetic clip. It is used by tests and
// by the CLI's -synthetic mode.
type MemorySource struct {
	// Count is the number of frames actually available.
	Count int
	// ReportedCount, when > 0, is what FrameCount returns. Containers often
	// over-report; setting it above Count exercises short reads.
	ReportedCount int
	Size          image.Point
	FPS           float64
	Generate      Generator

	// ReadHook, when set, runs before every Read with the frame index about
	// to be returned. A non-nil error is returned from Read as-is.
	ReadHook func(ctx context.Context, index int) error

	mu     sync.Mutex
	open   int
	opened int
}

// Open returns an independent handle positioned at frame 0.
func (s *MemorySource) Open(ctx context.Context, path string) (Reader, error) {
	if s.Generate == nil {
		return nil, fmt.Errorf("memory source %q has no generator", path)
	}
	s.mu.Lock()
	s.open++
	s.opened++
	s.mu.Unlock()
	return &memoryReader{src: s, ctx: ctx}, nil
}

// OpenHandles reports how many handles are currently open.
func (s *MemorySource) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// TotalOpened reports how many handles have ever been opened.
func (s *MemorySource) TotalOpened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

type memoryReader struct {
	src    *MemorySource
	ctx    context.Context
	next   int
	closed bool
}

func (r *memoryReader) Seek(index int) error {
	if r.closed {
		return ErrClosed
	}
	// Seeking within an over-reported tail succeeds; the next Read hits EOF.
	limit := max(r.src.Count, r.src.ReportedCount)
	if index < 0 || index > limit {
		return fmt.Errorf("seek to frame %d outside [0,%d]", index, limit)
	}
	r.next = index
	return nil
}

func (r *memoryReader) Read() (Frame, error) {
	if r.closed {
		return Frame{}, ErrClosed
	}
	if r.next >= r.src.Count {
		return Frame{}, io.EOF
	}
	if r.src.ReadHook != nil {
		if err := r.src.ReadHook(r.ctx, r.next); err != nil {
			return Frame{}, err
		}
	}
	f := Frame{Index: r.next, Image: r.src.Generate(r.next)}
	r.next++
	return f, nil
}

func (r *memoryReader) FrameCount() int {
	if r.src.ReportedCount > 0 {
		return r.src.ReportedCount
	}
	return r.src.Count
}

func (r *memoryReader) Dimensions() image.Point { return r.src.Size }

func (r *memoryReader) FrameRate() float64 {
	if r.src.FPS <= 0 {
		return 30
	}
	return r.src.FPS
}

func (r *memoryReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.src.mu.Lock()
	r.src.open--
	r.src.mu.Unlock()
	return nil
}

// MemorySink records everything written to it, keyed by output path.
type MemorySink struct {
	mu      sync.Mutex
	outputs map[string]*MemoryOutput
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

// MemoryOutput is one recorded output stream.
type MemoryOutput struct {
	FPS    float64
	Size   image.Point
	Frames []Frame
	Closed bool
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{outputs: make(map[string]*MemoryOutput)}
}

// Create starts a new recorded output, replacing any previous one at path.
func (s *MemorySink) Create(ctx context.Context, path string, fps float64, dims image.Point) (Writer, error) {
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	out := &MemoryOutput{FPS: fps, Size: dims}
	s.mu.Lock()
	s.outputs[path] = out
	s.mu.Unlock()
	return &memoryWriter{sink: s, out: out}, nil
}

// Output returns the recorded stream for path, or nil.
func (s *MemorySink) Output(path string) *MemoryOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputs[path]
}

type memoryWriter struct {
	sink *MemorySink
	out  *MemoryOutput
}

func (w *memoryWriter) Write(f Frame) error {
	w.sink.mu.Lock()
	defer w.sink.mu.Unlock()
	if w.out.Closed {
		return ErrClosed
	}
	w.out.Frames = append(w.out.Frames, f)
	return nil
}

func (w *memoryWriter) Close() error {
	w.sink.mu.Lock()
	defer w.sink.mu.Unlock()
	w.out.Closed = true
	return nil
}

// RemuxFunc adapts a function to the Remuxer interface.
type RemuxFunc func(ctx context.Context, videoPath, audioSourcePath, outPath string) error

// Remux calls f.
func (f RemuxFunc) Remux(ctx context.Context, videoPath, audioSourcePath, outPath string) error {
	return f(ctx, videoPath, audioSourcePath, outPath)
}

// Collect drains r into a slice. It stops at io.EOF.
func Collect(r Reader) ([]Frame, error) {
	var frames []Frame
	for {
		f, err := r.Read()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}
