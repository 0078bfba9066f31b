// Package encoding derives concrete encoder parameters from a
// conversion request. It is pure computation: no I/O, no subprocesses.
package encoding

import (
	"fmt"
	"math"

	"videoGateway/models"
)

const (
	// Canonical portrait output frame.
	OutputWidth  = 1080
	OutputHeight = 1920

	// FallbackCRF is used in target mode when the source duration is
	// unknown; the target size is not honored in that case.
	FallbackCRF = 28

	// FloorVideoKbps keeps very long sources or very small targets
	// from degenerating to a near-zero video rate.
	FloorVideoKbps = 250

	// Sources at or above this byte size take the size-targeted path
	// in auto mode; smaller ones get a plain normalization re-encode.
	AutoSizeThreshold = 20 << 20

	// AutoTargetMB is the size budget auto mode applies when the
	// request carries none of its own.
	AutoTargetMB = 19

	// DefaultMaxWidth bounds the generic downscale path when the
	// request does not pin a width.
	DefaultMaxWidth = 1280
)

// Plan computes the filter graph and rate parameters for a request.
// duration is the probed source duration; durationKnown is false when
// the probe could not answer. sourceBytes is the fetched source size,
// consulted only in auto mode.
func Plan(req *models.EncodingRequest, duration float64, durationKnown bool, sourceBytes int64) models.EncodingPlan {
	switch req.Mode {
	case models.ModeTarget:
		return targetPlan(req, req.TargetSizeMB, duration, durationKnown)
	case models.ModeAuto:
		if sourceBytes >= AutoSizeThreshold {
			target := req.TargetSizeMB
			if target <= 0 {
				target = AutoTargetMB
			}
			return targetPlan(req, target, duration, durationKnown)
		}
		return crfPlan(req)
	default:
		return crfPlan(req)
	}
}

func crfPlan(req *models.EncodingRequest) models.EncodingPlan {
	plan := models.EncodingPlan{
		CRF:              req.CRF,
		AudioBitrateKbps: req.AudioBitrateKbps,
	}
	applyAspect(&plan, req)
	return plan
}

// targetPlan splits a constant total-bitrate budget between audio and
// video: total = floor(MB * 8192 / seconds). This is a heuristic, not
// a guarantee; encoder rate control can land 10-20% off the target.
func targetPlan(req *models.EncodingRequest, targetMB, duration float64, durationKnown bool) models.EncodingPlan {
	plan := models.EncodingPlan{
		AudioBitrateKbps: req.AudioBitrateKbps,
	}

	if !durationKnown || duration <= 0 {
		plan.CRF = FallbackCRF
		plan.Note = fmt.Sprintf("source duration unknown; target size not honored, encoding at crf %d", FallbackCRF)
	} else {
		total := int(math.Floor(targetMB * 8192 / duration))
		video := total - plan.AudioBitrateKbps
		if video < FloorVideoKbps {
			video = FloorVideoKbps
		}
		plan.VideoBitrateKbps = video
	}

	applyAspect(&plan, req)
	return plan
}

func applyAspect(plan *models.EncodingPlan, req *models.EncodingRequest) {
	switch req.AspectMode {
	case models.AspectCrop:
		// Largest centered rectangle of the output aspect that fits
		// the source frame, then scaled to the exact output size.
		plan.FilterGraph = fmt.Sprintf(
			"crop='min(iw,ih*%d/%d)':'min(ih,iw*%d/%d)',scale=%d:%d,setsar=1",
			OutputWidth, OutputHeight, OutputHeight, OutputWidth,
			OutputWidth, OutputHeight,
		)
		plan.OutWidth, plan.OutHeight = OutputWidth, OutputHeight
	case models.AspectPad:
		// Fit inside the output box on the binding dimension, pad the
		// rest with black, content centered.
		plan.FilterGraph = fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1",
			OutputWidth, OutputHeight,
			OutputWidth, OutputHeight,
		)
		plan.OutWidth, plan.OutHeight = OutputWidth, OutputHeight
	default:
		maxWidth := req.MaxWidth
		if maxWidth <= 0 {
			maxWidth = DefaultMaxWidth
		}
		plan.FilterGraph = fmt.Sprintf("scale='min(iw,%d)':-2", maxWidth)
	}
}
