package pipeline

import (
	"image"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
)

// FrameEvent describes one classified frame. Frame.Image and Mask are shared
// with the pipeline and must not be modified.
type FrameEvent struct {
	Ordinal int // segment index in the plan
	Segment Segment
	Frame   l1frames.Frame
	// Mask is the refined binary mask the decision was made on.
	Mask   *image.Gray
	Result l3perception.MotionResult
	// Metrics describe the raw background-subtraction mask.
	Metrics l3perception.MaskMetrics
}

// Observer receives every classified frame. Workers call it concurrently, so
// implementations must be safe for concurrent use. Observers cannot change
// which frames are retained.
type Observer interface {
	FrameClassified(ev FrameEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev FrameEvent)

// FrameClassified calls f(ev).
func (f ObserverFunc) FrameClassified(ev FrameEvent) { f(ev) }

// Observers fans an event out to each non-nil observer in order.
type Observers []Observer

// FrameClassified implements Observer.
func (o Observers) FrameClassified(ev FrameEvent) {
	for _, obs := range o {
		if obs != nil {
			obs.FrameClassified(ev)
		}
	}
}
