package store

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *ArtifactStore {
	s, err := NewArtifactStore(t.TempDir(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewArtifactStore failed: %v", err)
	}
	return s
}

func TestArtifactStore_PutOpenRoundtrip(t *testing.T) {
	s := newTestStore(t)

	content := []byte("mp4 bytes")
	path, err := s.Put("job-1", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if path != s.Path("job-1") {
		t.Errorf("Put returned %q, Path says %q", path, s.Path("job-1"))
	}

	stream, size, err := s.Open("job-1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stream.Close()

	if size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), size)
	}
	got, _ := io.ReadAll(stream)
	if !bytes.Equal(got, content) {
		t.Errorf("content mismatch: %q", got)
	}
}

func TestArtifactStore_PathIsDeterministicFromJobID(t *testing.T) {
	s := newTestStore(t)

	if s.Path("abc") != s.Path("abc") {
		t.Error("Path must be stable")
	}
	if !strings.HasSuffix(s.Path("abc"), "abc.mp4") {
		t.Errorf("unexpected artifact name %q", s.Path("abc"))
	}
	if !strings.HasSuffix(s.ThumbPath("abc"), "abc.jpg") {
		t.Errorf("unexpected thumbnail name %q", s.ThumbPath("abc"))
	}
}

func TestArtifactStore_OpenMissing(t *testing.T) {
	s := newTestStore(t)

	if _, _, err := s.Open("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Size("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestArtifactStore_DeleteRemovesArtifactAndThumbnail(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Put("job-2", strings.NewReader("video")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := os.WriteFile(s.ThumbPath("job-2"), []byte("jpeg"), 0644); err != nil {
		t.Fatalf("write thumb: %v", err)
	}

	if err := s.Delete("job-2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, _, err := s.Open("job-2"); !errors.Is(err, ErrNotFound) {
		t.Error("artifact still present after delete")
	}
	if _, err := os.Stat(s.ThumbPath("job-2")); !os.IsNotExist(err) {
		t.Error("thumbnail still present after delete")
	}

	// Deleting again is not an error.
	if err := s.Delete("job-2"); err != nil {
		t.Errorf("repeat Delete failed: %v", err)
	}
}
