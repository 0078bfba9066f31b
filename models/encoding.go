package models

type AspectMode string

const (
	AspectCrop AspectMode = "crop"
	AspectPad  AspectMode = "pad"
	AspectNone AspectMode = "none"
)

type SizeMode string

const (
	ModeCRF    SizeMode = "crf"
	ModeTarget SizeMode = "target"
	ModeAuto   SizeMode = "auto"
)

// EncodingRequest is built once from a validated client request and
// never mutated. Exactly one of SourceURL or SourcePath is set.
type EncodingRequest struct {
	SourceURL        string
	SourcePath       string
	AspectMode       AspectMode
	Mode             SizeMode
	CRF              int
	TargetSizeMB     float64
	AudioBitrateKbps int
	MaxWidth         int
}

// EncodingPlan holds the concrete parameters handed to the encoder.
// VideoBitrateKbps of zero means quality (CRF) rate control. OutWidth
// and OutHeight are zero when only a width bound applies.
type EncodingPlan struct {
	FilterGraph      string
	VideoBitrateKbps int
	CRF              int
	AudioBitrateKbps int
	OutWidth         int
	OutHeight        int
	Note             string
}

// ConversionResult describes a finished pipeline run.
type ConversionResult struct {
	OutputPath  string
	ThumbPath   string
	Width       int
	Height      int
	ResultBytes int64
	Note        string
}
