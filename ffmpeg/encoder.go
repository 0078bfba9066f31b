// Package ffmpeg invokes the external encoder. The parameters it runs
// with are decided elsewhere; this package only executes them.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"videoGateway/models"
)

const stderrTailBytes = 512

type Encoder struct {
	logger *zap.Logger
	binary string
}

func NewEncoder(logger *zap.Logger) *Encoder {
	return &Encoder{logger: logger, binary: "ffmpeg"}
}

// Encode runs one transcode. A non-zero exit comes back as an error
// carrying the tail of the tool's stderr.
func (e *Encoder) Encode(ctx context.Context, inputPath, outputPath string, plan *models.EncodingPlan) error {
	args := buildArgs(inputPath, outputPath, plan)

	e.logger.Info("Starting encode",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("filter", plan.FilterGraph),
		zap.Int("video_kbps", plan.VideoBitrateKbps),
		zap.Int("crf", plan.CRF),
	)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String()))
	}

	e.logger.Info("Encode completed", zap.String("output", outputPath))
	return nil
}

// ExtractFrame grabs a single frame at the given offset, used for
// poster thumbnails.
func (e *Encoder) ExtractFrame(ctx context.Context, inputPath, outputPath string, atSeconds float64) error {
	args := []string{
		"-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 2, 64),
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, tail(stderr.String()))
	}
	return nil
}

func buildArgs(inputPath, outputPath string, plan *models.EncodingPlan) []string {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", plan.FilterGraph,
		"-c:v", "libx264",
		"-preset", "fast",
	}

	if plan.VideoBitrateKbps > 0 {
		rate := fmt.Sprintf("%dk", plan.VideoBitrateKbps)
		args = append(args,
			"-b:v", rate,
			"-maxrate", rate,
			"-bufsize", fmt.Sprintf("%dk", plan.VideoBitrateKbps*2),
		)
	} else {
		args = append(args, "-crf", strconv.Itoa(plan.CRF))
	}

	args = append(args,
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", plan.AudioBitrateKbps),
		"-movflags", "+faststart",
		outputPath,
	)
	return args
}

func tail(s string) string {
	if len(s) > stderrTailBytes {
		return s[len(s)-stderrTailBytes:]
	}
	return s
}
