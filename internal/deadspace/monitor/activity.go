package monitor

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
)

// ActivitySample is what the recorder keeps for one classified frame.
type ActivitySample struct {
	Index              int     `json:"index"`
	Segment            int     `json:"segment"`
	Active             bool    `json:"active"`
	Regions            int     `json:"regions"`
	LargestArea        float64 `json:"largest_area"`
	ForegroundFraction float64 `json:"foreground_fraction"`
}

// Span is a half-open range of capture indices [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of frames in s.
func (s Span) Len() int { return s.End - s.Start }

// ActivitySummary condenses a run's samples.
type ActivitySummary struct {
	Frames       int     `json:"frames"`
	ActiveFrames int     `json:"active_frames"`
	ActiveRatio  float64 `json:"active_ratio"`
	// Foreground fraction statistics over all frames, raw mask.
	MeanForeground float64 `json:"mean_foreground"`
	StdForeground  float64 `json:"std_foreground"`
	P95Foreground  float64 `json:"p95_foreground"`
	// Active spans are retained; dead spans are the gaps between them.
	ActiveSpans []Span `json:"active_spans"`
	DeadSpans   []Span `json:"dead_spans"`
}

// ActivityRecorder is a pipeline.Observer that keeps one sample per frame.
// It is safe for concurrent use by segment workers.
type ActivityRecorder struct {
	mu      sync.Mutex
	samples []ActivitySample
}

var _ pipeline.Observer = (*ActivityRecorder)(nil)

// NewActivityRecorder returns an empty recorder.
func NewActivityRecorder() *ActivityRecorder {
	return &ActivityRecorder{}
}

// FrameClassified implements pipeline.Observer.
func (r *ActivityRecorder) FrameClassified(ev pipeline.FrameEvent) {
	s := ActivitySample{
		Index:              ev.Frame.Index,
		Segment:            ev.Ordinal,
		Active:             ev.Result.Active,
		Regions:            len(ev.Result.Regions),
		ForegroundFraction: ev.Metrics.ForegroundFraction,
	}
	for _, c := range ev.Result.Regions {
		s.LargestArea = math.Max(s.LargestArea, c.Area())
	}

	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

// Samples returns a copy of the samples ordered by capture index.
func (r *ActivityRecorder) Samples() []ActivitySample {
	r.mu.Lock()
	out := make([]ActivitySample, len(r.samples))
	copy(out, r.samples)
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Reset drops every sample.
func (r *ActivityRecorder) Reset() {
	r.mu.Lock()
	r.samples = nil
	r.mu.Unlock()
}

// Summary computes the summary of everything recorded so far.
func (r *ActivityRecorder) Summary() ActivitySummary {
	return Summarise(r.Samples())
}

// Summarise computes an ActivitySummary from samples sorted by index.
func Summarise(samples []ActivitySample) ActivitySummary {
	sum := ActivitySummary{Frames: len(samples)}
	if len(samples) == 0 {
		return sum
	}

	fractions := make([]float64, len(samples))
	for i, s := range samples {
		fractions[i] = s.ForegroundFraction
		if s.Active {
			sum.ActiveFrames++
		}
	}
	sum.ActiveRatio = float64(sum.ActiveFrames) / float64(len(samples))

	if len(fractions) > 1 {
		sum.MeanForeground, sum.StdForeground = stat.MeanStdDev(fractions, nil)
	} else {
		sum.MeanForeground = fractions[0]
	}
	sorted := append([]float64(nil), fractions...)
	sort.Float64s(sorted)
	sum.P95Foreground = stat.Quantile(0.95, stat.Empirical, sorted, nil)

	sum.ActiveSpans, sum.DeadSpans = spans(samples)
	return sum
}

// spans groups consecutive samples of equal activity. A jump in capture
// index closes the current span.
func spans(samples []ActivitySample) (active, dead []Span) {
	cur := Span{Start: samples[0].Index, End: samples[0].Index + 1}
	curActive := samples[0].Active
	flush := func() {
		if curActive {
			active = append(active, cur)
		} else {
			dead = append(dead, cur)
		}
	}
	for _, s := range samples[1:] {
		if s.Active == curActive && s.Index == cur.End {
			cur.End++
			continue
		}
		flush()
		cur = Span{Start: s.Index, End: s.Index + 1}
		curActive = s.Active
	}
	flush()
	return active, dead
}
