package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultFetchTimeout is the default HTTP request timeout
	DefaultFetchTimeout = 10 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "ytfetch/1.0"
	// progressInterval is the minimum wall-clock gap between progress callbacks
	progressInterval = 100 * time.Millisecond
)

// HTTPFetcher streams HTTP resources to files with throttled progress reporting
type HTTPFetcher struct {
	fs        afero.Fs
	client    *http.Client
	userAgent string
	interval  time.Duration
	logger    *zap.Logger
}

// NewHTTPFetcher creates a new fetcher. A nil client gets a default one with DefaultFetchTimeout.
func NewHTTPFetcher(fs afero.Fs, client *http.Client, userAgent string, logger *zap.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{
			Timeout: DefaultFetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// GitHub release assets redirect through a CDN
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		fs:        fs,
		client:    client,
		userAgent: userAgent,
		interval:  progressInterval,
		logger:    logger,
	}
}

// Fetch downloads url into dest. onProgress runs at most once per interval
// while data arrives, plus once unconditionally after the body is fully
// written. On failure the partially written dest is left for the caller.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dest string, onProgress func(domain.ProgressSnapshot)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", domain.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: execute request: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status code: %d", domain.ErrNetwork, resp.StatusCode)
	}

	if err := f.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("%w: create dest dir: %w", domain.ErrIO, err)
	}

	out, err := f.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: create file: %w", domain.ErrIO, err)
	}
	defer out.Close()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	f.logger.Debug("Fetching",
		zap.String("url", url),
		zap.String("dest", dest),
		zap.Int64("total", total))

	start := time.Now()
	var downloaded int64
	snapshot := func() domain.ProgressSnapshot {
		speed := 0.0
		if elapsed := time.Since(start).Seconds(); elapsed > 0 {
			speed = float64(downloaded) / elapsed
		}
		return domain.ProgressSnapshot{Downloaded: downloaded, Total: total, Speed: speed}
	}

	throttle := rate.Sometimes{Interval: f.interval}
	_, err = copyChunks(ctx, out, resp.Body, domain.ErrNetwork, func(n int) {
		downloaded += int64(n)
		if onProgress != nil {
			throttle.Do(func() { onProgress(snapshot()) })
		}
	})
	if err != nil {
		return err
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close file: %w", domain.ErrIO, err)
	}

	if onProgress != nil {
		onProgress(snapshot())
	}

	f.logger.Debug("Fetch complete",
		zap.String("url", url),
		zap.Int64("bytes", downloaded),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}
