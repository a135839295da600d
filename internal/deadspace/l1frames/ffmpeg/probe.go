// Package ffmpeg implements the l1frames ports by driving the ffmpeg and
// ffprobe binaries as subprocesses. Frames cross the process boundary as
// raw rgb24.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
)

// Toolchain locates the binaries and holds encoder settings. The zero value
// is not usable; call New.
type Toolchain struct {
	FFmpeg  string
	FFprobe string
	// Codec is passed through to -c:v for the silent output stream.
	Codec string
}

// New returns a Toolchain using ffmpeg/ffprobe from PATH.
func New(codec string) *Toolchain {
	if codec == "" {
		codec = "libx264"
	}
	return &Toolchain{FFmpeg: "ffmpeg", FFprobe: "ffprobe", Codec: codec}
}

// Available reports whether both binaries can be found.
func (t *Toolchain) Available() bool {
	if _, err := exec.LookPath(t.FFmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(t.FFprobe)
	return err == nil
}

// ProbeResult describes the first video stream of a container.
type ProbeResult struct {
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int
}

// Dimensions returns the frame size as a point.
func (p ProbeResult) Dimensions() image.Point { return image.Pt(p.Width, p.Height) }

type probeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		RFrameRate    string `json:"r_frame_rate"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}

// Probe reads stream geometry, rate and frame count. When the container
// does not carry nb_frames the packets are counted instead, which reads the
// whole file.
func (t *Toolchain) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	out, err := t.runProbe(ctx, path, false)
	if err != nil {
		return nil, err
	}
	res, err := parseProbe(out)
	if err != nil {
		return nil, err
	}
	if res.FrameCount > 0 {
		return res, nil
	}

	out, err = t.runProbe(ctx, path, true)
	if err != nil {
		return nil, err
	}
	counted, err := parseProbe(out)
	if err != nil {
		return nil, err
	}
	res.FrameCount = counted.FrameCount
	return res, nil
}

func (t *Toolchain) runProbe(ctx context.Context, path string, countPackets bool) ([]byte, error) {
	args := []string{"-v", "error", "-select_streams", "v:0"}
	entries := "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames"
	if countPackets {
		args = append(args, "-count_packets")
		entries += ",nb_read_packets"
	}
	args = append(args, "-show_entries", entries, "-of", "json", path)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.FFprobe, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func parseProbe(data []byte) (*ProbeResult, error) {
	var po probeOutput
	if err := json.Unmarshal(data, &po); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(po.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found")
	}
	s := po.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("invalid video dimensions %dx%d", s.Width, s.Height)
	}

	rate, err := parseRate(s.AvgFrameRate)
	if err != nil || rate <= 0 {
		rate, err = parseRate(s.RFrameRate)
		if err != nil {
			return nil, err
		}
	}

	count, _ := strconv.Atoi(s.NbFrames)
	if count <= 0 {
		count, _ = strconv.Atoi(s.NbReadPackets)
	}

	return &ProbeResult{Width: s.Width, Height: s.Height, FrameRate: rate, FrameCount: count}, nil
}

// parseRate parses ffprobe's "num/den" rational.
func parseRate(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	if d == 0 {
		return 0, nil
	}
	return n / d, nil
}
