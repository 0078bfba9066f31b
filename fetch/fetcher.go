package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const defaultAttempts = 3

// UnreachableError is returned once every fetch attempt has been
// exhausted. LastStatus is zero when the failure was below HTTP.
type UnreachableError struct {
	URL        string
	Attempts   int
	LastStatus int
	Err        error
}

func (e *UnreachableError) Error() string {
	if e.LastStatus != 0 {
		return fmt.Sprintf("source unreachable after %d attempts (last status %d): %v", e.Attempts, e.LastStatus, e.Err)
	}
	return fmt.Sprintf("source unreachable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Fetcher downloads remote sources into scratch storage. All call
// sites share the one retry/backoff policy defined here.
type Fetcher struct {
	client   *http.Client
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
}

func NewFetcher(logger *zap.Logger, connectTimeout, readTimeout time.Duration) *Fetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: connectTimeout,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   readTimeout,
		},
		logger:   logger,
		attempts: defaultAttempts,
		backoff:  time.Second,
	}
}

// Fetch streams sourceURL to destination. Attempt n waits n-1 backoff
// units first. On failure a partial file may remain at destination;
// the caller owns scratch cleanup.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, destination string) error {
	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * f.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		status, err := f.try(ctx, sourceURL, destination)
		if err == nil {
			return nil
		}
		lastErr, lastStatus = err, status

		f.logger.Warn("Fetch attempt failed",
			zap.String("url", sourceURL),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	return &UnreachableError{
		URL:        sourceURL,
		Attempts:   f.attempts,
		LastStatus: lastStatus,
		Err:        lastErr,
	}
}

func (f *Fetcher) try(ctx context.Context, sourceURL, destination string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(destination)
	if err != nil {
		return 0, err
	}

	// Sources may be large; stream instead of buffering the body.
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return 0, err
	}

	return 0, out.Close()
}
