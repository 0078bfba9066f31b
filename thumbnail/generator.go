// Package thumbnail produces a poster image for a finished artifact:
// one frame grabbed by the encoder, downscaled and saved as JPEG.
package thumbnail

import (
	"context"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"videoGateway/ffmpeg"
)

const (
	thumbWidth  = 360
	frameOffset = 1.0
	jpegQuality = 85
)

type Generator struct {
	extract func(ctx context.Context, inputPath, outputPath string, atSeconds float64) error
	logger  *zap.Logger
}

func NewGenerator(encoder *ffmpeg.Encoder, logger *zap.Logger) *Generator {
	return &Generator{extract: encoder.ExtractFrame, logger: logger}
}

// Generate writes a thumbnail for videoPath at thumbPath. Thumbnails
// are best-effort; callers log failures instead of failing the job.
func (g *Generator) Generate(ctx context.Context, videoPath, thumbPath string) error {
	framePath := thumbPath + ".frame.jpg"
	if err := g.extract(ctx, videoPath, framePath, frameOffset); err != nil {
		return err
	}
	defer os.Remove(framePath)

	src, err := imaging.Open(framePath)
	if err != nil {
		return fmt.Errorf("open poster frame: %w", err)
	}

	thumb := imaging.Resize(src, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}

	g.logger.Info("Thumbnail generated", zap.String("path", thumbPath))
	return nil
}
