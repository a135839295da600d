package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidSegmentPlan is returned for a frame total or segment floor below 1,
// and by SegmentPlan.Validate for a plan that does not tile the clip.
var ErrInvalidSegmentPlan = errors.New("invalid segment plan")

// Segment is a contiguous run of capture indices [Start, Start+Count).
type Segment struct {
	Start int `json:"start"`
	Count int `json:"count"`
}

// End returns the exclusive end index.
func (s Segment) End() int { return s.Start + s.Count }

// SegmentPlan is an ordered partition of [0, total).
type SegmentPlan []Segment

// PlanSegments splits total frames into segments of at least minSegment
// frames. A working size is halved from total while the half still meets the
// floor; every segment but the last has that size and the last takes the
// remainder. A clip shorter than the floor becomes a single segment.
func PlanSegments(total, minSegment int) (SegmentPlan, error) {
	if total < 1 {
		return nil, fmt.Errorf("%w: total frames %d < 1", ErrInvalidSegmentPlan, total)
	}
	if minSegment < 1 {
		return nil, fmt.Errorf("%w: minimum segment %d < 1", ErrInvalidSegmentPlan, minSegment)
	}

	size := total
	for size/2 >= minSegment {
		size /= 2
	}

	var plan SegmentPlan
	offset := 0
	for offset+size < total {
		plan = append(plan, Segment{Start: offset, Count: size})
		offset += size
	}
	plan = append(plan, Segment{Start: offset, Count: total - offset})
	return plan, nil
}

// Validate checks that p covers [0, total) exactly once, contiguously and in
// ascending order.
func (p SegmentPlan) Validate(total int) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty plan", ErrInvalidSegmentPlan)
	}
	next := 0
	for i, s := range p {
		if s.Count < 1 {
			return fmt.Errorf("%w: segment %d has %d frames", ErrInvalidSegmentPlan, i, s.Count)
		}
		if s.Start != next {
			return fmt.Errorf("%w: segment %d starts at %d, want %d", ErrInvalidSegmentPlan, i, s.Start, next)
		}
		next = s.End()
	}
	if next != total {
		return fmt.Errorf("%w: plan covers %d frames, want %d", ErrInvalidSegmentPlan, next, total)
	}
	return nil
}

// Total returns the number of frames the plan covers.
func (p SegmentPlan) Total() int {
	n := 0
	for _, s := range p {
		n += s.Count
	}
	return n
}
