package encoding

import (
	"math"
	"strings"
	"testing"

	"videoGateway/models"
)

func baseRequest() *models.EncodingRequest {
	return &models.EncodingRequest{
		Mode:             models.ModeCRF,
		AspectMode:       models.AspectNone,
		CRF:              23,
		AudioBitrateKbps: 96,
	}
}

func TestPlan_CropAlwaysProducesPortraitFrame(t *testing.T) {
	durations := []struct {
		duration float64
		known    bool
	}{
		{0, false},
		{12.5, true},
		{7200, true},
	}

	for _, d := range durations {
		req := baseRequest()
		req.AspectMode = models.AspectCrop

		plan := Plan(req, d.duration, d.known, 0)

		if plan.OutWidth != OutputWidth || plan.OutHeight != OutputHeight {
			t.Errorf("duration=%v: expected %dx%d, got %dx%d",
				d.duration, OutputWidth, OutputHeight, plan.OutWidth, plan.OutHeight)
		}
		if !strings.Contains(plan.FilterGraph, "crop=") {
			t.Errorf("expected crop filter, got %q", plan.FilterGraph)
		}
		if !strings.Contains(plan.FilterGraph, "scale=1080:1920") {
			t.Errorf("expected scale to output frame, got %q", plan.FilterGraph)
		}
	}
}

func TestPlan_PadFilterCentersInsideOutputBox(t *testing.T) {
	req := baseRequest()
	req.AspectMode = models.AspectPad

	plan := Plan(req, 0, false, 0)

	want := "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:black,setsar=1"
	if plan.FilterGraph != want {
		t.Errorf("expected %q, got %q", want, plan.FilterGraph)
	}
	if plan.OutWidth != OutputWidth || plan.OutHeight != OutputHeight {
		t.Errorf("expected %dx%d, got %dx%d", OutputWidth, OutputHeight, plan.OutWidth, plan.OutHeight)
	}
}

func TestPlan_NoneModeBoundsWidthOnly(t *testing.T) {
	req := baseRequest()
	req.MaxWidth = 960

	plan := Plan(req, 0, false, 0)

	if plan.FilterGraph != "scale='min(iw,960)':-2" {
		t.Errorf("unexpected filter %q", plan.FilterGraph)
	}
	if plan.OutWidth != 0 || plan.OutHeight != 0 {
		t.Errorf("none mode must not pin output dimensions, got %dx%d", plan.OutWidth, plan.OutHeight)
	}
}

func TestPlan_NoneModeDefaultMaxWidth(t *testing.T) {
	plan := Plan(baseRequest(), 0, false, 0)

	if plan.FilterGraph != "scale='min(iw,1280)':-2" {
		t.Errorf("unexpected filter %q", plan.FilterGraph)
	}
}

func TestPlan_TargetModeBitrateBudget(t *testing.T) {
	cases := []struct {
		name     string
		targetMB float64
		duration float64
		audio    int
	}{
		{"19MB over 60s", 19, 60, 96},
		{"100MB over 600s", 100, 600, 128},
		{"5MB over 30s", 5, 30, 64},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			req.Mode = models.ModeTarget
			req.TargetSizeMB = tc.targetMB
			req.AudioBitrateKbps = tc.audio

			plan := Plan(req, tc.duration, true, 0)

			total := int(math.Floor(tc.targetMB * 8192 / tc.duration))
			want := total - tc.audio
			if want < FloorVideoKbps {
				want = FloorVideoKbps
			}

			if plan.VideoBitrateKbps != want {
				t.Errorf("expected video %d kbps (total %d), got %d", want, total, plan.VideoBitrateKbps)
			}
			if plan.VideoBitrateKbps < FloorVideoKbps {
				t.Errorf("video rate %d below floor %d", plan.VideoBitrateKbps, FloorVideoKbps)
			}
			if plan.CRF != 0 {
				t.Errorf("target mode with known duration must not set CRF, got %d", plan.CRF)
			}
			if plan.Note != "" {
				t.Errorf("unexpected policy note %q", plan.Note)
			}
		})
	}
}

func TestPlan_TargetModeFloorsDegenerateRates(t *testing.T) {
	req := baseRequest()
	req.Mode = models.ModeTarget
	req.TargetSizeMB = 1
	req.AudioBitrateKbps = 96

	// 1 MB over two hours budgets nearly nothing for video.
	plan := Plan(req, 7200, true, 0)

	if plan.VideoBitrateKbps != FloorVideoKbps {
		t.Errorf("expected floor %d, got %d", FloorVideoKbps, plan.VideoBitrateKbps)
	}
}

func TestPlan_TargetModeUnknownDurationFallsBackToCRF(t *testing.T) {
	for _, tc := range []struct {
		name     string
		duration float64
		known    bool
	}{
		{"unknown", 0, false},
		{"zero", 0, true},
		{"negative", -3, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			req.Mode = models.ModeTarget
			req.TargetSizeMB = 19

			plan := Plan(req, tc.duration, tc.known, 0)

			if plan.VideoBitrateKbps != 0 {
				t.Errorf("fallback must not compute a bitrate, got %d", plan.VideoBitrateKbps)
			}
			if plan.CRF != FallbackCRF {
				t.Errorf("expected fallback crf %d, got %d", FallbackCRF, plan.CRF)
			}
			if plan.Note == "" {
				t.Error("fallback must surface a policy note")
			}
			if !strings.Contains(plan.Note, "target size not honored") {
				t.Errorf("note must say the target was not honored, got %q", plan.Note)
			}
		})
	}
}

func TestPlan_CRFModePassesQualityThrough(t *testing.T) {
	req := baseRequest()
	req.CRF = 18

	plan := Plan(req, 42, true, 0)

	if plan.CRF != 18 {
		t.Errorf("expected crf 18, got %d", plan.CRF)
	}
	if plan.VideoBitrateKbps != 0 {
		t.Errorf("crf mode must not cap bitrate, got %d", plan.VideoBitrateKbps)
	}
}

func TestPlan_AutoModeLargeSourceTakesTargetPath(t *testing.T) {
	req := baseRequest()
	req.Mode = models.ModeAuto

	plan := Plan(req, 60, true, 30<<20)

	total := int(math.Floor(float64(AutoTargetMB) * 8192 / 60))
	want := total - req.AudioBitrateKbps
	if plan.VideoBitrateKbps != want {
		t.Errorf("expected video %d kbps, got %d", want, plan.VideoBitrateKbps)
	}
}

func TestPlan_AutoModeRespectsExplicitTarget(t *testing.T) {
	req := baseRequest()
	req.Mode = models.ModeAuto
	req.TargetSizeMB = 50

	plan := Plan(req, 100, true, 30<<20)

	total := int(math.Floor(50.0 * 8192 / 100))
	if plan.VideoBitrateKbps != total-req.AudioBitrateKbps {
		t.Errorf("expected explicit target to win, got %d kbps", plan.VideoBitrateKbps)
	}
}

func TestPlan_AutoModeSmallSourceNormalizesOnly(t *testing.T) {
	req := baseRequest()
	req.Mode = models.ModeAuto

	plan := Plan(req, 60, true, 5<<20)

	if plan.VideoBitrateKbps != 0 {
		t.Errorf("small source must re-encode without a bitrate cap, got %d", plan.VideoBitrateKbps)
	}
	if plan.CRF != req.CRF {
		t.Errorf("expected crf %d, got %d", req.CRF, plan.CRF)
	}
}

func TestPlan_AutoModeThresholdBoundary(t *testing.T) {
	req := baseRequest()
	req.Mode = models.ModeAuto

	at := Plan(req, 60, true, AutoSizeThreshold)
	if at.VideoBitrateKbps == 0 {
		t.Error("source at the threshold must take the sized path")
	}

	below := Plan(req, 60, true, AutoSizeThreshold-1)
	if below.VideoBitrateKbps != 0 {
		t.Error("source below the threshold must not take the sized path")
	}
}
