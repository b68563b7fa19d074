package xenocanto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"warbler/internal/config"
	"warbler/internal/logging"
)

// ErrCatalogUnavailable indicates catalog paging exhausted its retries. This
// aborts the whole run; a truncated descriptor sequence must never pass for a
// complete one.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// ErrMissingAPIKey indicates the client was constructed without credentials.
var ErrMissingAPIKey = errors.New("xeno-canto api key required")

// Query describes one catalog search: a bounding box given as four ordered
// coordinates plus an optional taxon term and a cap on total results.
type Query struct {
	South float64
	West  float64
	North float64
	East  float64

	// Taxon is an optional extra query term, e.g. "grp:birds" or a genus.
	Taxon string

	// MaxResults caps the number of distinct descriptors yielded. 0 means
	// no cap.
	MaxResults int
}

// term renders the API query string. The box filter takes coordinates in
// lat_min,lat_max,lon_min,lon_max order.
func (q Query) term() string {
	parts := []string{fmt.Sprintf("box:%g,%g,%g,%g", q.South, q.North, q.West, q.East)}
	if taxon := strings.TrimSpace(q.Taxon); taxon != "" {
		parts = append(parts, taxon)
	}
	return strings.Join(parts, " ")
}

// Config captures the runtime settings required to talk to the catalog.
type Config struct {
	BaseURL           string
	APIKey            string
	UserAgent         string
	Timeout           time.Duration
	PageRetryAttempts int
	PageRetryBase     time.Duration
	PagePause         time.Duration
}

// ConfigFromApp derives client settings from the application config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		BaseURL:           cfg.Catalog.BaseURL,
		APIKey:            cfg.Catalog.APIKey,
		UserAgent:         cfg.Catalog.UserAgent,
		Timeout:           cfg.RequestTimeout(),
		PageRetryAttempts: cfg.Catalog.PageRetryAttempts,
		PageRetryBase:     cfg.BackoffBase(),
		PagePause:         cfg.PagePause(),
	}
}

const (
	defaultTimeout       = 120 * time.Second
	defaultRetryAttempts = 5
	defaultRetryBase     = time.Second
	maxRetryDelay        = 30 * time.Second
)

// Client issues paginated search queries against the Xeno-canto recordings API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	sleeper    func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "xenocanto")
	}
}

// WithSleeper overrides how retry and paging sleeps are performed (used in tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a catalog client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageRetryAttempts < 1 {
		cfg.PageRetryAttempts = defaultRetryAttempts
	}
	if cfg.PageRetryBase <= 0 {
		cfg.PageRetryBase = defaultRetryBase
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewNop(),
		sleeper:    sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Search returns a lazy iterator over descriptors matching the query. A fresh
// call restarts paging from the first page.
func (c *Client) Search(query Query) *Iterator {
	return &Iterator{client: c, query: query, page: 1}
}

// fetchPage retrieves one result page, retrying transient failures with
// exponential backoff. Exhausting the attempt budget surfaces
// ErrCatalogUnavailable.
func (c *Client) fetchPage(ctx context.Context, query Query, page int) (*searchResponse, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.PageRetryAttempts; attempt++ {
		resp, err := c.fetchPageOnce(ctx, query, page)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isTransient(err) || attempt == c.cfg.PageRetryAttempts {
			break
		}
		delay := retryDelay(attempt, c.cfg.PageRetryBase)
		c.logger.Warn("catalog page fetch failed, retrying",
			logging.Int("page", page),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)
		if err := c.sleeper(ctx, delay); err != nil {
			return nil, err
		}
	}

	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: page %d failed after %d attempts: %v",
		ErrCatalogUnavailable, page, c.cfg.PageRetryAttempts, lastErr)
}

func (c *Client) fetchPageOnce(ctx context.Context, query Query, page int) (*searchResponse, error) {
	endpoint := fmt.Sprintf("%s?query=%s&key=%s&page=%d",
		c.cfg.BaseURL, url.QueryEscape(query.term()), url.QueryEscape(c.cfg.APIKey), page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	if msg := parsed.apiError(); msg != "" {
		// API-level errors (bad key, malformed query) do not heal on retry.
		return nil, &apiError{Message: msg}
	}
	return &parsed, nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("catalog request: http %d: %s", e.StatusCode, e.Body)
}

func (e *httpStatusError) transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type apiError struct {
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("catalog api error: %s", e.Message)
}

func isTransient(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.transient()
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Connection resets and unexpected EOFs arrive wrapped in url.Error.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// retryDelay doubles the base interval per attempt, capped.
func retryDelay(attempt int, base time.Duration) time.Duration {
	delay := base << (attempt - 1)
	if delay > maxRetryDelay || delay <= 0 {
		return maxRetryDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
