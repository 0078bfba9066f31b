package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var ErrNotFound = errors.New("artifact not found")

// ArtifactStore maps finished outputs to disk. Names derive from the
// job ID alone, so any component that knows the ID can compute the
// path without coordination.
type ArtifactStore struct {
	dir    string
	logger *zap.Logger
}

func NewArtifactStore(dir string, logger *zap.Logger) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &ArtifactStore{dir: dir, logger: logger}, nil
}

func (s *ArtifactStore) Path(jobID string) string {
	return filepath.Join(s.dir, jobID+".mp4")
}

func (s *ArtifactStore) ThumbPath(jobID string) string {
	return filepath.Join(s.dir, jobID+".jpg")
}

func (s *ArtifactStore) Put(jobID string, r io.Reader) (string, error) {
	path := s.Path(jobID)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	return path, out.Close()
}

// Open returns the artifact stream and its byte size.
func (s *ArtifactStore) Open(jobID string) (io.ReadCloser, int64, error) {
	return s.open(s.Path(jobID))
}

// OpenThumb returns the poster thumbnail stream and its byte size.
func (s *ArtifactStore) OpenThumb(jobID string) (io.ReadCloser, int64, error) {
	return s.open(s.ThumbPath(jobID))
}

func (s *ArtifactStore) open(path string) (io.ReadCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

func (s *ArtifactStore) Size(jobID string) (int64, error) {
	fi, err := os.Stat(s.Path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return fi.Size(), nil
}

// Delete removes the artifact and its thumbnail. Missing files are
// not an error; retention may already have run.
func (s *ArtifactStore) Delete(jobID string) error {
	for _, path := range []string{s.Path(jobID), s.ThumbPath(jobID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
