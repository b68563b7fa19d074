package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

// errEmptyPayload marks a download that completed with zero bytes. The
// catalog occasionally serves empty bodies for withdrawn recordings.
var errEmptyPayload = errors.New("empty payload")

// Fetcher streams audio payloads to disk.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewFetcher constructs a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// WithHTTPClient swaps the underlying HTTP client (used in tests).
func (f *Fetcher) WithHTTPClient(client *http.Client) *Fetcher {
	if client != nil {
		f.httpClient = client
	}
	return f
}

// FetchToFile downloads srcURL into destPath, creating or truncating the
// file. It returns the byte count written; a zero-byte body is an error so a
// dead link never produces an empty corpus entry.
func (f *Fetcher) FetchToFile(ctx context.Context, srcURL, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &downloadStatusError{StatusCode: resp.StatusCode, URL: srcURL}
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open destination: %w", err)
	}

	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(destPath)
		return 0, fmt.Errorf("stream payload: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(destPath)
		return 0, fmt.Errorf("close destination: %w", closeErr)
	}
	if written == 0 {
		_ = os.Remove(destPath)
		return 0, errEmptyPayload
	}
	return written, nil
}

type downloadStatusError struct {
	StatusCode int
	URL        string
}

func (e *downloadStatusError) Error() string {
	return fmt.Sprintf("download %s: http %d", e.URL, e.StatusCode)
}

func (e *downloadStatusError) transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// isTransientFetch reports whether a download failure is worth retrying.
// Context cancellation and client errors like 404 are not.
func isTransientFetch(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errEmptyPayload) {
		return false
	}
	var statusErr *downloadStatusError
	if errors.As(err, &statusErr) {
		return statusErr.transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
