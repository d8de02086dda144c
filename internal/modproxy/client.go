// Package modproxy asks a Go module proxy whether a module exists and how
// old its first release is. The deps check uses the answers to catch
// dependencies that were never published (hallucinated imports) or were
// published suspiciously recently.
package modproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// DefaultBaseURL is the public Go module proxy.
const DefaultBaseURL = "https://proxy.golang.org"

// Client is a minimal module-proxy client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
	now        func() time.Time
}

// New creates a Client for the given proxy base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	now := cfg.now
	if now == nil {
		now = time.Now
	}

	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger, now: now}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout bounds every lookup; the deps check must never hang CI.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		cfg.timeout = d
		return nil
	}
}

// WithNow overrides the clock (tests).
func WithNow(now func() time.Time) Option {
	return func(cfg *clientConfig) error {
		cfg.now = now
		return nil
	}
}

// StatusError is a non-2xx proxy response.
type StatusError struct {
	Op         string
	StatusCode int
	Msg        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: proxy returned %d: %s", e.Op, e.StatusCode, e.Msg)
}

// IsNotFound reports whether err is the proxy saying the module or version
// does not exist (404, or 410 for removed content).
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone)
}

// Info is the proxy's version metadata.
type Info struct {
	Version string    `json:"Version"`
	Time    time.Time `json:"Time"`
}

// Fact is the digest the deps check consumes.
type Fact struct {
	Path    string
	Exists  bool
	AgeDays int // days since the earliest release; 0 when unknown
}

// Versions lists the module's tagged versions. Not-found propagates as a
// *StatusError satisfying IsNotFound.
func (c *Client) Versions(ctx context.Context, modulePath string) ([]string, error) {
	body, err := c.get(ctx, modulePath, "@v/list", "list versions")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// Latest returns the proxy's @latest resolution, which exists even for
// modules with no tagged versions.
func (c *Client) Latest(ctx context.Context, modulePath string) (*Info, error) {
	body, err := c.get(ctx, modulePath, "@latest", "resolve latest")
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("resolve latest: decode response: %w", err)
	}
	return &info, nil
}

// InfoFor returns the metadata of one version.
func (c *Client) InfoFor(ctx context.Context, modulePath, version string) (*Info, error) {
	body, err := c.get(ctx, modulePath, "@v/"+version+".info", "version info")
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("version info: decode response: %w", err)
	}
	return &info, nil
}

// Lookup answers {exists, age-in-days} for a module. Age is measured from
// the earliest tagged release so a freshly published typosquat cannot look
// mature; modules with only pseudo-versions fall back to @latest.
func (c *Client) Lookup(ctx context.Context, modulePath string) (*Fact, error) {
	versions, err := c.Versions(ctx, modulePath)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	notFound := IsNotFound(err)

	var releasedAt time.Time
	switch {
	case len(versions) > 0:
		semver.Sort(versions)
		info, ierr := c.InfoFor(ctx, modulePath, versions[0])
		if ierr != nil {
			return nil, ierr
		}
		releasedAt = info.Time
	default:
		info, lerr := c.Latest(ctx, modulePath)
		if lerr != nil {
			if IsNotFound(lerr) && notFound {
				return &Fact{Path: modulePath, Exists: false}, nil
			}
			return nil, lerr
		}
		releasedAt = info.Time
	}

	age := 0
	if !releasedAt.IsZero() {
		age = int(c.now().Sub(releasedAt).Hours() / 24)
	}
	return &Fact{Path: modulePath, Exists: true, AgeDays: age}, nil
}

func (c *Client) get(ctx context.Context, modulePath, endpoint, operation string) ([]byte, error) {
	escaped, err := module.EscapePath(modulePath)
	if err != nil {
		return nil, fmt.Errorf("%s: escape module path %q: %w", operation, modulePath, err)
	}
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, escaped, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", operation, err)
	}

	c.logger.DebugContext(ctx, "proxy request", "operation", operation, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return nil, &StatusError{Op: operation, StatusCode: resp.StatusCode, Msg: msg}
	}
	return body, nil
}
