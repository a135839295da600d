package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
)

// ForegroundModel is the part of the background model a worker uses. Both a
// live model and its snapshot satisfy it.
type ForegroundModel interface {
	Apply(f l1frames.Frame) (*image.Gray, error)
}

// SegmentResult is the outcome of one worker.
type SegmentResult struct {
	Ordinal int
	Segment Segment
	// Frames holds the retained frames in ascending capture index.
	Frames []l1frames.Frame
	// Read is the number of frames actually read from the source.
	Read int
	// Short is set when the source ran out before Segment.Count frames.
	Short bool
}

// WorkerError wraps a fatal failure inside one segment worker.
type WorkerError struct {
	Ordinal int
	Segment Segment
	Err     error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("segment %d [%d,%d): %v", e.Ordinal, e.Segment.Start, e.Segment.End(), e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

type segmentWorker struct {
	ordinal    int
	segment    Segment
	reader     l1frames.Reader // positioned at segment.Start
	model      ForegroundModel
	classifier MaskClassifier
	minArea    float64
	observer   Observer
}

// run reads up to segment.Count frames and keeps the active ones. The source
// ending early is not an error: the result is marked Short. Cancellation is
// checked before every frame and returned unwrapped.
func (w *segmentWorker) run(ctx context.Context) (SegmentResult, error) {
	res := SegmentResult{Ordinal: w.ordinal, Segment: w.segment}
	for res.Read < w.segment.Count {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		f, err := w.reader.Read()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			res.Short = true
			opsf("segment %d: source exhausted after %d of %d frames (from %d)",
				w.ordinal, res.Read, w.segment.Count, w.segment.Start)
			break
		}
		if err != nil {
			return res, w.fail(fmt.Errorf("read frame %d: %w", w.segment.Start+res.Read, err))
		}
		res.Read++

		raw, err := w.model.Apply(f)
		if err != nil {
			return res, w.fail(fmt.Errorf("background subtraction on frame %d: %w", f.Index, err))
		}
		refined := w.classifier.RefineMask(raw)
		result := w.classifier.Classify(refined, w.minArea)
		if result.Active {
			res.Frames = append(res.Frames, f)
		}
		tracef("segment %d frame %d: active=%t regions=%d trigger=%d",
			w.ordinal, f.Index, result.Active, len(result.Regions), result.Trigger)

		if w.observer != nil {
			w.observer.FrameClassified(FrameEvent{
				Ordinal: w.ordinal,
				Segment: w.segment,
				Frame:   f,
				Mask:    refined,
				Result:  result,
				Metrics: l3perception.ComputeMaskMetrics(raw),
			})
		}
	}

	diagf("segment %d [%d,%d): read %d, retained %d", w.ordinal, w.segment.Start, w.segment.End(), res.Read, len(res.Frames))
	return res, nil
}

func (w *segmentWorker) fail(err error) error {
	return &WorkerError{Ordinal: w.ordinal, Segment: w.segment, Err: err}
}
