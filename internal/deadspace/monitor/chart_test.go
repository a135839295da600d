package monitor

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadspace/internal/fsutil"
)

func sampleRun() []ActivitySample {
	out := make([]ActivitySample, 40)
	for i := range out {
		out[i] = ActivitySample{Index: i, Active: i >= 10 && i < 20}
		if out[i].Active {
			out[i].ForegroundFraction = 0.2
		}
	}
	return out
}

func TestSaveActivityPlot(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, SaveActivityPlot(fs, "/reports/activity.png", sampleRun()))

	data, err := fs.ReadFile("/reports/activity.png")
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestSaveActivityPlot_NoSamples(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	assert.Error(t, SaveActivityPlot(fs, "/reports/activity.png", nil))
	assert.False(t, fs.Exists("/reports/activity.png"))
}

func TestRenderActivityChart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderActivityChart(&buf, "clip.mp4", sampleRun()))
	html := buf.String()
	assert.Contains(t, html, "Dead-space activity")
	assert.Contains(t, html, "clip.mp4")
	assert.Contains(t, html, "retained=10")
}

func TestActivityRecorder_Handler(t *testing.T) {
	t.Parallel()

	r := NewActivityRecorder()
	h := r.Handler("live")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/activity", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for i := 0; i < 5; i++ {
		r.FrameClassified(event(i, i > 2, 0.1))
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/activity", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "retained=2")
}

func TestActivityRecorder_SummaryHandler(t *testing.T) {
	t.Parallel()

	r := NewActivityRecorder()
	for i := 0; i < 6; i++ {
		r.FrameClassified(event(i, i >= 4, 0.1))
	}
	h := r.SummaryHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activity.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got ActivitySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 6, got.Frames)
	assert.Equal(t, []Span{{Start: 4, End: 6}}, got.ActiveSpans)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/activity.json", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
