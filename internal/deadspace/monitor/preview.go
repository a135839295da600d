package monitor

import (
	"fmt"
	"image/png"
	"path/filepath"

	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
	"github.com/banshee-data/deadspace/internal/fsutil"
	"github.com/banshee-data/deadspace/internal/monitoring"
)

// PreviewWriter saves annotated PNGs of retained frames. Only frames whose
// capture index is a multiple of Every are written.
type PreviewWriter struct {
	FS        fsutil.FileSystem
	Dir       string
	Every     int
	Thickness int
}

var _ pipeline.Observer = (*PreviewWriter)(nil)

// NewPreviewWriter returns a writer saving every 25th retained frame to dir.
func NewPreviewWriter(fs fsutil.FileSystem, dir string) *PreviewWriter {
	return &PreviewWriter{FS: fs, Dir: dir, Every: 25, Thickness: 2}
}

// PreviewPath returns the file a frame's preview is written to.
func (p *PreviewWriter) PreviewPath(index int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("frame_%06d.png", index))
}

// FrameClassified implements pipeline.Observer. Write failures are logged
// and never reach the pipeline.
func (p *PreviewWriter) FrameClassified(ev pipeline.FrameEvent) {
	if !ev.Result.Active {
		return
	}
	every := p.Every
	if every < 1 {
		every = 1
	}
	if ev.Frame.Index%every != 0 {
		return
	}
	if err := p.write(ev); err != nil {
		monitoring.Logf("[Preview] frame %d: %v", ev.Frame.Index, err)
	}
}

func (p *PreviewWriter) write(ev pipeline.FrameEvent) error {
	if err := p.FS.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}
	img := l3perception.DrawRegions(ev.Frame.Image, ev.Result.Regions, l3perception.RegionColour, p.Thickness)

	path := p.PreviewPath(ev.Frame.Index)
	f, err := p.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
