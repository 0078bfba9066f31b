package thumbnail

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap/zaptest"
)

func newTestGenerator(t *testing.T, extract func(ctx context.Context, inputPath, outputPath string, atSeconds float64) error) *Generator {
	t.Helper()
	return &Generator{extract: extract, logger: zaptest.NewLogger(t)}
}

func TestGenerate_ResizesExtractedFrame(t *testing.T) {
	dir := t.TempDir()
	thumbPath := filepath.Join(dir, "job.jpg")

	var gotOffset float64
	gen := newTestGenerator(t, func(ctx context.Context, inputPath, outputPath string, atSeconds float64) error {
		gotOffset = atSeconds
		frame := imaging.New(1080, 1920, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
		return imaging.Save(frame, outputPath)
	})

	if err := gen.Generate(context.Background(), filepath.Join(dir, "job.mp4"), thumbPath); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if gotOffset != frameOffset {
		t.Errorf("expected frame offset %v, got %v", frameOffset, gotOffset)
	}

	thumb, err := imaging.Open(thumbPath)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	bounds := thumb.Bounds()
	if bounds.Dx() != thumbWidth {
		t.Errorf("expected width %d, got %d", thumbWidth, bounds.Dx())
	}
	if bounds.Dy() != 640 {
		t.Errorf("expected height 640 for a 1080x1920 source, got %d", bounds.Dy())
	}

	if _, err := os.Stat(thumbPath + ".frame.jpg"); !os.IsNotExist(err) {
		t.Error("intermediate frame was not removed")
	}
}

func TestGenerate_ExtractFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	extractErr := errors.New("no video stream")

	gen := newTestGenerator(t, func(ctx context.Context, inputPath, outputPath string, atSeconds float64) error {
		return extractErr
	})

	err := gen.Generate(context.Background(), filepath.Join(dir, "job.mp4"), filepath.Join(dir, "job.jpg"))
	if !errors.Is(err, extractErr) {
		t.Fatalf("expected extract error, got %v", err)
	}
}

func TestGenerate_MissingFrameIsError(t *testing.T) {
	dir := t.TempDir()

	// Extraction reports success but writes nothing.
	gen := newTestGenerator(t, func(ctx context.Context, inputPath, outputPath string, atSeconds float64) error {
		return nil
	})

	err := gen.Generate(context.Background(), filepath.Join(dir, "job.mp4"), filepath.Join(dir, "job.jpg"))
	if err == nil {
		t.Fatal("expected an error for a missing poster frame")
	}
}
