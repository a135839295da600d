package monitor

import (
	"bytes"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadspace/internal/fsutil"
)

func TestPreviewWriter_WritesSampledActiveFrames(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	w := NewPreviewWriter(fs, "/previews")
	w.Every = 5

	for i := 0; i < 20; i++ {
		w.FrameClassified(event(i, i >= 8, 0.1))
	}

	assert.False(t, fs.Exists(w.PreviewPath(0)), "dead frames are never previewed")
	assert.False(t, fs.Exists(w.PreviewPath(9)), "off-cadence frames are skipped")
	for _, i := range []int{10, 15} {
		data, err := fs.ReadFile(w.PreviewPath(i))
		require.NoError(t, err, "frame %d", i)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		// Region boundary drawn in the overlay colour.
		r, g, b, _ := img.At(1, 1).RGBA()
		assert.Equal(t, [3]uint32{0, 0xffff, 0}, [3]uint32{r, g, b})
	}
}

type failingFS struct{ fsutil.FileSystem }

func (failingFS) Create(string) (io.WriteCloser, error) { return nil, io.ErrClosedPipe }

func TestPreviewWriter_ErrorsAreSwallowed(t *testing.T) {
	t.Parallel()

	w := NewPreviewWriter(failingFS{fsutil.NewMemoryFileSystem()}, "/previews")
	w.Every = 1
	assert.NotPanics(t, func() { w.FrameClassified(event(3, true, 0.2)) })
	assert.True(t, strings.HasSuffix(w.PreviewPath(3), "frame_000003.png"))
}

func TestProgress_CountsFrames(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewProgress(&out, 10, "classifying")
	for i := 0; i < 10; i++ {
		p.FrameClassified(event(i, false, 0))
	}
	assert.Equal(t, int64(10), p.Count())
	require.NoError(t, p.Finish())
	assert.Contains(t, out.String(), "classifying")

	spinner := NewProgress(io.Discard, 0, "unknown length")
	spinner.FrameClassified(event(0, false, 0))
	assert.Equal(t, int64(1), spinner.Count())
}
