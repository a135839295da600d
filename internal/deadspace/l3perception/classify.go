package l3perception

import (
	"image"

	"github.com/disintegration/gift"
)

// MotionResult is the decision for one frame.
type MotionResult struct {
	Active bool
	// Regions holds every external contour of an active frame and is empty
	// for an inactive one.
	Regions []Contour
	// Trigger is the index in Regions of the first contour whose area met
	// the threshold, or -1.
	Trigger int
}

// Classifier refines masks and decides whether they contain motion. A
// Classifier is cheap to build and is not shared between goroutines by the
// pipeline; each segment worker owns one.
type Classifier struct {
	params Params
	filter *gift.GIFT
}

// NewClassifier validates p and builds the refinement chain.
func NewClassifier(p Params) (*Classifier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{params: p, filter: newRefineFilter(p)}, nil
}

// Params returns the refinement parameters.
func (c *Classifier) Params() Params { return c.params }

// Classify reports the frame active as soon as one external contour, in
// enumeration order, has Area() >= minArea. It does not look for the
// largest contour.
func (c *Classifier) Classify(mask *image.Gray, minArea float64) MotionResult {
	return Classify(mask, minArea)
}

// Classify is the stateless form of Classifier.Classify.
func Classify(mask *image.Gray, minArea float64) MotionResult {
	contours := FindExternalContours(mask)
	for i, ct := range contours {
		if ct.Area() >= minArea {
			return MotionResult{Active: true, Regions: contours, Trigger: i}
		}
	}
	return MotionResult{Trigger: -1}
}
