package monitor

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
)

// Progress advances a terminal progress bar once per classified frame.
type Progress struct {
	bar *progressbar.ProgressBar
}

var _ pipeline.Observer = (*Progress)(nil)

// NewProgress returns a bar sized for total frames. A non-positive total
// renders a spinner instead.
func NewProgress(w io.Writer, total int, description string) *Progress {
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(0),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &Progress{bar: bar}
}

// FrameClassified implements pipeline.Observer.
func (p *Progress) FrameClassified(pipeline.FrameEvent) {
	_ = p.bar.Add(1)
}

// Count returns the number of frames seen so far.
func (p *Progress) Count() int64 {
	return int64(p.bar.State().CurrentNum)
}

// Finish completes the bar.
func (p *Progress) Finish() error {
	return p.bar.Finish()
}
