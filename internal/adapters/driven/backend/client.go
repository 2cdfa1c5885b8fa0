package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Client implements the driven ports.
var (
	_ driven.ChatBackend     = (*Client)(nil)
	_ driven.DocumentBackend = (*Client)(nil)
)

// Config holds backend connection settings.
type Config struct {
	// BaseURL is the backend root, e.g. http://localhost:8080.
	BaseURL string

	// Timeout bounds JSON requests. Zero means no limit.
	Timeout time.Duration

	// RateLimit is the sustained requests per second. Zero disables pacing.
	RateLimit float64

	// Burst is the token bucket size used with RateLimit.
	Burst int
}

// ConfigFromSettings builds a Config from API settings.
func ConfigFromSettings(s domain.APISettings) Config {
	return Config{
		BaseURL:   s.BaseURL,
		Timeout:   s.Timeout,
		RateLimit: s.RateLimit,
		Burst:     s.Burst,
	}
}

// Option configures a Client.
type Option func(*options)

type options struct {
	transport   http.RoundTripper
	tokenSource oauth2.TokenSource
	limiter     *RateLimiter
	logging     bool
	middleware  []Middleware
	onError     func(error)
}

// WithTransport sets the base transport. Defaults to http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTokenSource authenticates every request with a bearer token from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) { o.tokenSource = ts }
}

// WithRateLimiter replaces the limiter built from Config.
func WithRateLimiter(l *RateLimiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithRequestLogging logs every request at debug level.
func WithRequestLogging() Option {
	return func(o *options) { o.logging = true }
}

// WithMiddleware adds middleware inside logging and auth, outside rate limiting.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// WithErrorHandler registers fn to receive every failed JSON API call.
// Status polls are excluded; the poller reports those itself.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	api     *http.Client
	stream  *http.Client
	onError func(error)
}

// NewClient creates a backend client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", domain.ErrInvalidInput, cfg.BaseURL)
	}

	o := options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limiter == nil && cfg.RateLimit > 0 {
		o.limiter = NewRateLimiter(cfg.RateLimit, cfg.Burst)
	}

	var mws []Middleware
	if o.logging {
		mws = append(mws, RequestLogging())
	}
	if o.tokenSource != nil {
		mws = append(mws, BearerAuth(o.tokenSource))
	}
	mws = append(mws, o.middleware...)
	if o.limiter != nil {
		mws = append(mws, RateLimit(o.limiter))
	}
	rt := Chain(o.transport, mws...)

	return &Client{
		baseURL: base,
		api:     &http.Client{Transport: rt, Timeout: cfg.Timeout},
		stream:  &http.Client{Transport: rt},
		onError: o.onError,
	}, nil
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// doJSON sends in (when non-nil) as JSON and decodes the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return wrapTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// report passes a failure to the error handler. Cancellations are not failures.
func (c *Client) report(err error) error {
	if err == nil || c.onError == nil {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.onError(err)
	return err
}
