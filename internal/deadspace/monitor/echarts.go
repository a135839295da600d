package monitor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/deadspace/internal/httputil"
)

// RenderActivityChart writes an interactive HTML line chart of samples.
func RenderActivityChart(w io.Writer, title string, samples []ActivitySample) error {
	xs := make([]int, len(samples))
	fg := make([]opts.LineData, len(samples))
	retained := make([]opts.LineData, len(samples))
	for i, s := range samples {
		xs[i] = s.Index
		fg[i] = opts.LineData{Value: s.ForegroundFraction}
		v := 0
		if s.Active {
			v = 1
		}
		retained[i] = opts.LineData{Value: v, YAxisIndex: 1}
	}

	sum := Summarise(samples)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Dead-space activity", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("frames=%d retained=%d dead spans=%d", sum.Frames, sum.ActiveFrames, len(sum.DeadSpans)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Foreground fraction", Min: 0}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Retained", Min: 0, Max: 1})
	line.SetXAxis(xs).
		AddSeries("foreground", fg).
		AddSeries("retained", retained, charts.WithLineChartOpts(opts.LineChart{Step: "start"}))

	return line.Render(w)
}

// Handler serves the recorder's current activity chart as HTML.
func (r *ActivityRecorder) Handler(title string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		samples := r.Samples()
		if len(samples) == 0 {
			httputil.NotFound(w, "no frames classified yet")
			return
		}
		var buf bytes.Buffer
		if err := RenderActivityChart(&buf, title, samples); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}

// SummaryHandler serves the recorder's current ActivitySummary as JSON.
func (r *ActivityRecorder) SummaryHandler() http.Handler {
	return httputil.GetOnly(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteJSONOK(w, r.Summary())
	})
}
