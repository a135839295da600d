package monitor

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/deadspace/internal/fsutil"
)

// SaveActivityPlot renders the foreground fraction and the retain decision
// against capture index as a PNG at path.
func SaveActivityPlot(fs fsutil.FileSystem, path string, samples []ActivitySample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no activity samples to plot")
	}

	p := plot.New()
	p.Title.Text = "Motion activity"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Foreground fraction"
	p.Y.Min = 0

	fgPts := make(plotter.XYs, len(samples))
	activePts := make(plotter.XYs, len(samples))
	peak := 0.0
	for _, s := range samples {
		if s.ForegroundFraction > peak {
			peak = s.ForegroundFraction
		}
	}
	if peak == 0 {
		peak = 1
	}
	for i, s := range samples {
		fgPts[i] = plotter.XY{X: float64(s.Index), Y: s.ForegroundFraction}
		// Retained frames are drawn at the peak so the step is visible.
		if s.Active {
			activePts[i] = plotter.XY{X: float64(s.Index), Y: peak}
		} else {
			activePts[i] = plotter.XY{X: float64(s.Index), Y: 0}
		}
	}

	fgLine, err := plotter.NewLine(fgPts)
	if err != nil {
		return fmt.Errorf("foreground line: %w", err)
	}
	fgLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	fgLine.Width = vg.Points(1)

	activeLine, err := plotter.NewLine(activePts)
	if err != nil {
		return fmt.Errorf("retained line: %w", err)
	}
	activeLine.Color = color.RGBA{G: 160, A: 255}
	activeLine.Width = vg.Points(1)
	activeLine.StepStyle = plotter.PreStep

	p.Add(fgLine, activeLine)
	p.Legend.Add("foreground", fgLine)
	p.Legend.Add("retained", activeLine)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(14*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render activity plot: %w", err)
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
