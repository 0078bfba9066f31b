// Package service orchestrates one conversion end to end: fetch the
// source, probe it, derive a plan, run the encoder, store the result.
// The synchronous and asynchronous HTTP paths both run through here.
package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"videoGateway/encoding"
	"videoGateway/models"
	"videoGateway/store"
)

type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destination string) error
}

type Prober interface {
	Duration(ctx context.Context, path string) (float64, bool)
	Dimensions(ctx context.Context, path string) (int, int, bool)
}

type Encoder interface {
	Encode(ctx context.Context, inputPath, outputPath string, plan *models.EncodingPlan) error
}

type Thumbnailer interface {
	Generate(ctx context.Context, videoPath, thumbPath string) error
}

type Pipeline struct {
	fetcher    Fetcher
	prober     Prober
	encoder    Encoder
	thumbs     Thumbnailer
	artifacts  *store.ArtifactStore
	scratchDir string
	logger     *zap.Logger
}

// NewPipeline wires the collaborators. thumbs may be nil to skip
// poster generation.
func NewPipeline(fetcher Fetcher, prober Prober, encoder Encoder, thumbs Thumbnailer, artifacts *store.ArtifactStore, scratchDir string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		prober:     prober,
		encoder:    encoder,
		thumbs:     thumbs,
		artifacts:  artifacts,
		scratchDir: scratchDir,
		logger:     logger,
	}
}

// Run executes the conversion for jobID. The scratch input file is
// removed when the pipeline ends, success or not. On failure no
// artifact remains.
func (p *Pipeline) Run(ctx context.Context, jobID string, req *models.EncodingRequest) (*models.ConversionResult, error) {
	inputPath := req.SourcePath
	fetched := false
	if inputPath == "" {
		inputPath = filepath.Join(p.scratchDir, jobID+sourceExt(req.SourceURL))
		fetched = true
	}
	defer p.cleanupScratch(jobID, inputPath)

	if fetched {
		if err := p.fetcher.Fetch(ctx, req.SourceURL, inputPath); err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
	}

	var sourceBytes int64
	if fi, err := os.Stat(inputPath); err == nil {
		sourceBytes = fi.Size()
	}

	var duration float64
	var durationKnown bool
	if req.Mode == models.ModeTarget || req.Mode == models.ModeAuto {
		duration, durationKnown = p.prober.Duration(ctx, inputPath)
	}

	plan := encoding.Plan(req, duration, durationKnown, sourceBytes)
	if plan.Note != "" {
		p.logger.Info("Encoding policy note",
			zap.String("job_id", jobID),
			zap.String("note", plan.Note),
		)
	}

	outputPath := p.artifacts.Path(jobID)
	if err := p.encoder.Encode(ctx, inputPath, outputPath, &plan); err != nil {
		if cleanupErr := p.artifacts.Delete(jobID); cleanupErr != nil {
			p.logger.Warn("artifact cleanup failed",
				zap.String("job_id", jobID),
				zap.Error(cleanupErr),
			)
		}
		return nil, fmt.Errorf("encode: %w", err)
	}

	result := &models.ConversionResult{
		OutputPath: outputPath,
		Width:      plan.OutWidth,
		Height:     plan.OutHeight,
		Note:       plan.Note,
	}
	if size, err := p.artifacts.Size(jobID); err == nil {
		result.ResultBytes = size
	}
	if w, h, ok := p.prober.Dimensions(ctx, outputPath); ok {
		result.Width, result.Height = w, h
	}

	if p.thumbs != nil {
		thumbPath := p.artifacts.ThumbPath(jobID)
		if err := p.thumbs.Generate(ctx, outputPath, thumbPath); err != nil {
			p.logger.Warn("thumbnail generation failed",
				zap.String("job_id", jobID),
				zap.Error(err),
			)
		} else {
			result.ThumbPath = thumbPath
		}
	}

	return result, nil
}

func (p *Pipeline) cleanupScratch(jobID, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("scratch cleanup failed",
			zap.String("job_id", jobID),
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

// sourceExt keeps the remote extension on the scratch file so the
// encoder can sniff the container; anything odd falls back to .bin.
func sourceExt(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ".bin"
	}
	ext := strings.ToLower(filepath.Ext(u.Path))
	if ext == "" || len(ext) > 5 {
		return ".bin"
	}
	return ext
}
