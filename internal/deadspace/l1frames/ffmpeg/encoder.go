package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/monitoring"
)

// Create starts an encoder that writes a silent video stream to path.
func (t *Toolchain) Create(ctx context.Context, path string, fps float64, dims image.Point) (l1frames.Writer, error) {
	if dims.X <= 0 || dims.Y <= 0 {
		return nil, fmt.Errorf("invalid output dimensions %v", dims)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid output frame rate %v", fps)
	}

	e := &encoder{path: path, dims: dims, buf: make([]byte, dims.X*dims.Y*3)}
	cmd := exec.CommandContext(ctx, t.FFmpeg, encodeArgs(path, fps, dims, t.Codec)...)
	cmd.Stderr = &e.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg encoder: %w", err)
	}
	monitoring.Tracef("[ffmpeg] encoding %s at %.3f fps, %dx%d (pid %d)", path, fps, dims.X, dims.Y, cmd.Process.Pid)
	e.cmd = cmd
	e.stdin = stdin
	return e, nil
}

func encodeArgs(path string, fps float64, dims image.Point, codec string) []string {
	return []string{
		"-v", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", dims.X, dims.Y),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
		"-an", "-c:v", codec, "-pix_fmt", "yuv420p",
		path,
	}
}

type encoder struct {
	path   string
	dims   image.Point
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	buf    []byte
	closed bool
}

func (e *encoder) Write(f l1frames.Frame) error {
	if e.closed {
		return l1frames.ErrClosed
	}
	if err := encodeRGB24(f.Image, e.dims, e.buf); err != nil {
		return fmt.Errorf("frame %d: %w", f.Index, err)
	}
	if _, err := e.stdin.Write(e.buf); err != nil {
		return fmt.Errorf("write frame %d to encoder: %w", f.Index, err)
	}
	return nil
}

func (e *encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.stdin.Close(); err != nil {
		return fmt.Errorf("close encoder input: %w", err)
	}
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w: %s", e.path, err, strings.TrimSpace(e.stderr.String()))
	}
	return nil
}
