package probe

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.500000\n", 12.5, true},
		{"3600\n", 3600, true},
		{"N/A\n", 0, false},
		{"", 0, false},
		{"garbage", 0, false},
		{"-1.0", 0, false},
		{"0", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseDuration(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseDuration(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDimensions(t *testing.T) {
	w, h, ok := parseDimensions("width=1920\nheight=1080\n")
	if !ok || w != 1920 || h != 1080 {
		t.Errorf("got %dx%d, %v", w, h, ok)
	}

	if _, _, ok := parseDimensions("width=0\nheight=1080\n"); ok {
		t.Error("zero width must not parse")
	}
	if _, _, ok := parseDimensions(""); ok {
		t.Error("empty output must not parse")
	}
}

func TestProber_MissingFileIsUnknownNotError(t *testing.T) {
	p := NewProber(zaptest.NewLogger(t))

	// Works whether or not ffprobe is installed: either the tool is
	// missing or the file is; both must come back as unknown.
	if _, ok := p.Duration(context.Background(), "/nonexistent/clip.mp4"); ok {
		t.Error("expected unknown duration for missing file")
	}
	if _, _, ok := p.Dimensions(context.Background(), "/nonexistent/clip.mp4"); ok {
		t.Error("expected unknown dimensions for missing file")
	}
}
