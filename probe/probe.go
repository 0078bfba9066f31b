package probe

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Prober reads media metadata through ffprobe. It never fails the
// caller: anything it cannot answer comes back as unknown, and the
// caller applies a fallback policy.
type Prober struct {
	logger *zap.Logger
	binary string
}

func NewProber(logger *zap.Logger) *Prober {
	return &Prober{logger: logger, binary: "ffprobe"}
}

// Duration returns the container duration in seconds. ok is false when
// the tool is missing, the file is corrupt, or the output is unparseable.
func (p *Prober) Duration(ctx context.Context, path string) (float64, bool) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	out, err := exec.CommandContext(ctx, p.binary, args...).Output()
	if err != nil {
		p.logger.Warn("ffprobe duration failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return 0, false
	}

	d, ok := parseDuration(string(out))
	if !ok {
		p.logger.Warn("ffprobe emitted no usable duration",
			zap.String("path", path),
			zap.String("output", strings.TrimSpace(string(out))),
		)
	}
	return d, ok
}

// Dimensions returns the pixel size of the first video stream.
func (p *Prober) Dimensions(ctx context.Context, path string) (int, int, bool) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "default=noprint_wrappers=1",
		path,
	}

	out, err := exec.CommandContext(ctx, p.binary, args...).Output()
	if err != nil {
		p.logger.Warn("ffprobe dimensions failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return 0, 0, false
	}

	return parseDimensions(string(out))
}

func parseDuration(out string) (float64, bool) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, false
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func parseDimensions(out string) (int, int, bool) {
	var width, height int
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "width="); ok {
			width, _ = strconv.Atoi(v)
		}
		if v, ok := strings.CutPrefix(line, "height="); ok {
			height, _ = strconv.Atoi(v)
		}
	}
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}
