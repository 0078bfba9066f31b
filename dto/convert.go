package dto

import (
	"errors"
	"fmt"
	"net/url"

	"videoGateway/models"
)

var ErrJobNotFound = errors.New("job not found")

const (
	DefaultCRF       = 23
	DefaultAudioKbps = 96
)

type ConvertRequest struct {
	URL        string  `json:"url"`
	Mode       string  `json:"mode"`
	CRF        *int    `json:"crf"`
	TargetMB   float64 `json:"target_mb"`
	AudioKbps  int     `json:"audio_kbps"`
	AspectMode string  `json:"aspect_mode"`
	MaxWidth   int     `json:"max_width"`
}

// ToEncodingRequest validates the request and fills defaults. It
// rejects bad input before any resource is touched. requireURL is
// false for upload paths, where the source arrives as a file.
func (r *ConvertRequest) ToEncodingRequest(requireURL bool) (*models.EncodingRequest, error) {
	if requireURL {
		if r.URL == "" {
			return nil, errors.New("url is required")
		}
		u, err := url.Parse(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("url must be a valid http(s) URL")
		}
	}

	mode := models.SizeMode(r.Mode)
	switch mode {
	case "":
		mode = models.ModeCRF
	case models.ModeCRF, models.ModeTarget, models.ModeAuto:
	default:
		return nil, fmt.Errorf("mode must be one of crf, target, auto")
	}

	aspect := models.AspectMode(r.AspectMode)
	switch aspect {
	case "":
		aspect = models.AspectNone
	case models.AspectCrop, models.AspectPad, models.AspectNone:
	default:
		return nil, fmt.Errorf("aspect_mode must be one of crop, pad, none")
	}

	// CRF is a pointer so an explicit 0 (lossless) survives; absent
	// means the default.
	crf := DefaultCRF
	if r.CRF != nil {
		crf = *r.CRF
	}
	if crf < 0 || crf > 51 {
		return nil, fmt.Errorf("crf must be between 0 and 51, got %d", crf)
	}

	if mode == models.ModeTarget && r.TargetMB <= 0 {
		return nil, errors.New("target_mb must be positive in target mode")
	}
	if r.TargetMB < 0 {
		return nil, errors.New("target_mb must not be negative")
	}

	audio := r.AudioKbps
	if audio == 0 {
		audio = DefaultAudioKbps
	}
	if audio < 32 || audio > 320 {
		return nil, fmt.Errorf("audio_kbps must be between 32 and 320, got %d", r.AudioKbps)
	}

	if r.MaxWidth < 0 {
		return nil, errors.New("max_width must not be negative")
	}

	return &models.EncodingRequest{
		SourceURL:        r.URL,
		AspectMode:       aspect,
		Mode:             mode,
		CRF:              crf,
		TargetSizeMB:     r.TargetMB,
		AudioBitrateKbps: audio,
		MaxWidth:         r.MaxWidth,
	}, nil
}

type ConvertResponse struct {
	Status   string  `json:"status"`
	MP4URL   string  `json:"mp4_url"`
	ThumbURL string  `json:"thumb_url,omitempty"`
	ResultMB float64 `json:"result_mb"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Note     string  `json:"note,omitempty"`
}

type EnqueueResponse struct {
	Status    string `json:"status"`
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
	ResultURL string `json:"result_url"`
}

type StatusResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	OutURL   string `json:"out_url,omitempty"`
	ThumbURL string `json:"thumb_url,omitempty"`
	Error    string `json:"error,omitempty"`
	Note     string `json:"note,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
