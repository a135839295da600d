package l1frames

import (
	"context"
	"image"
)

// Frame is one decoded raster sample. Index is the absolute frame number in
// the source and is the frame's identity; Image is never modified after the
// reader hands it out.
type Frame struct {
	Index int
	Image image.Image
}

// Reader is an open, sequential handle into a frame source. Each segment
// worker owns its own Reader; a Reader is not safe for concurrent use.
type Reader interface {
	// Seek positions the handle so the next Read returns frame index.
	Seek(index int) error
	// Read returns the next frame, or io.EOF once the source is exhausted.
	Read() (Frame, error)
	// FrameCount is the number of frames the container reports.
	FrameCount() int
	// Dimensions is the frame size in pixels.
	Dimensions() image.Point
	// FrameRate is the source frame rate in frames per second.
	FrameRate() float64
	Close() error
}

// Opener opens independent Readers on a source path.
type Opener interface {
	Open(ctx context.Context, path string) (Reader, error)
}

// Writer receives output frames in order.
type Writer interface {
	Write(f Frame) error
	Close() error
}

// SinkOpener creates Writers for an output path.
type SinkOpener interface {
	Create(ctx context.Context, path string, fps float64, dims image.Point) (Writer, error)
}

// Remuxer attaches the audio track of audioSourcePath to the video stream
// of videoPath, producing outPath.
type Remuxer interface {
	Remux(ctx context.Context, videoPath, audioSourcePath, outPath string) error
}
