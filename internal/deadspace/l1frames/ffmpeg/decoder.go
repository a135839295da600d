package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/monitoring"
)

// Open probes path and returns a Reader positioned at frame 0. The decoder
// process starts lazily on the first Read so that an immediate Seek does not
// decode frames only to discard them.
func (t *Toolchain) Open(ctx context.Context, path string) (l1frames.Reader, error) {
	info, err := t.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return &decoder{tc: t, ctx: ctx, path: path, info: *info}, nil
}

type decoder struct {
	tc   *Toolchain
	ctx  context.Context
	path string
	info ProbeResult

	next   int
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	buf    []byte
	closed bool
}

func (d *decoder) FrameCount() int         { return d.info.FrameCount }
func (d *decoder) Dimensions() image.Point { return d.info.Dimensions() }
func (d *decoder) FrameRate() float64      { return d.info.FrameRate }

func (d *decoder) Seek(index int) error {
	if d.closed {
		return l1frames.ErrClosed
	}
	if index < 0 {
		return fmt.Errorf("seek to negative frame %d", index)
	}
	d.stop()
	d.next = index
	return nil
}

func (d *decoder) Read() (l1frames.Frame, error) {
	if d.closed {
		return l1frames.Frame{}, l1frames.ErrClosed
	}
	if d.cmd == nil {
		if err := d.start(); err != nil {
			return l1frames.Frame{}, err
		}
	}

	if _, err := io.ReadFull(d.stdout, d.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if werr := d.wait(); werr != nil {
				return l1frames.Frame{}, werr
			}
			return l1frames.Frame{}, err
		}
		return l1frames.Frame{}, fmt.Errorf("read frame %d: %w", d.next, err)
	}

	img := decodeRGB24(d.buf, d.info.Width, d.info.Height)
	f := l1frames.Frame{Index: d.next, Image: img}
	d.next++
	return f, nil
}

func (d *decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.stop()
	return nil
}

func decodeArgs(path string, start int) []string {
	args := []string{"-v", "error", "-nostdin", "-i", path, "-map", "0:v:0"}
	if start > 0 {
		args = append(args, "-vf", fmt.Sprintf("select=gte(n\\,%d)", start))
	}
	return append(args, "-fps_mode", "passthrough", "-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1")
}

func (d *decoder) start() error {
	d.stderr.Reset()
	cmd := exec.CommandContext(d.ctx, d.tc.FFmpeg, decodeArgs(d.path, d.next)...)
	cmd.Stderr = &d.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decoder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg decoder: %w", err)
	}
	monitoring.Tracef("[ffmpeg] decoding %s from frame %d (pid %d)", d.path, d.next, cmd.Process.Pid)
	d.cmd = cmd
	d.stdout = stdout
	if d.buf == nil {
		d.buf = make([]byte, d.info.Width*d.info.Height*3)
	}
	return nil
}

// wait reaps a decoder that reached end of stream and reports a non-zero
// exit as a decode error.
func (d *decoder) wait() error {
	if d.cmd == nil {
		return nil
	}
	err := d.cmd.Wait()
	d.cmd = nil
	d.stdout = nil
	if err != nil && d.ctx.Err() == nil {
		return fmt.Errorf("ffmpeg decode %s: %w: %s", d.path, err, strings.TrimSpace(d.stderr.String()))
	}
	return nil
}

// stop kills a running decoder. Used on Seek and Close.
func (d *decoder) stop() {
	if d.cmd == nil {
		return
	}
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	d.cmd = nil
	d.stdout = nil
}
