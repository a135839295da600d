package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/banshee-data/deadspace/internal/monitoring"
)

// Remux copies the video stream of videoPath and the first audio stream of
// audioSourcePath into outPath. A source without audio yields a video-only
// output rather than an error. The output ends with the shorter stream.
func (t *Toolchain) Remux(ctx context.Context, videoPath, audioSourcePath, outPath string) error {
	cmd := exec.CommandContext(ctx, t.FFmpeg, remuxArgs(videoPath, audioSourcePath, outPath)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg remux: %w, output: %s", err, strings.TrimSpace(string(out)))
	}
	monitoring.Logf("[ffmpeg] attached audio from %s to %s", audioSourcePath, outPath)
	return nil
}

func remuxArgs(videoPath, audioSourcePath, outPath string) []string {
	return []string{
		"-v", "error", "-y",
		"-i", videoPath,
		"-i", audioSourcePath,
		"-map", "0:v:0", "-map", "1:a:0?",
		"-c:v", "copy", "-c:a", "aac",
		"-shortest",
		outPath,
	}
}
