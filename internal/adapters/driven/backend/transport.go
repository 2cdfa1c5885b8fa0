package backend

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/docchat/internal/logger"
)

// Middleware wraps a RoundTripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with middleware. The first middleware is outermost.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// BearerAuth sets the Authorization header from ts on every request.
// A token source failure fails the request before it is sent.
func BearerAuth(ts oauth2.TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return &oauth2.Transport{Source: ts, Base: next}
	}
}

// RateLimit delays requests according to l and records 429 backoffs.
func RateLimit(l *RateLimiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := l.Wait(req.Context()); err != nil {
				if req.Body != nil {
					_ = req.Body.Close()
				}
				return nil, err
			}
			resp, err := next.RoundTrip(req)
			if err == nil && resp.StatusCode == http.StatusTooManyRequests {
				l.RecordRateLimit(parseRetryAfter(resp.Header))
			}
			return resp, err
		})
	}
}

// RequestLogging logs each request and its outcome at debug level.
func RequestLogging() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start).Round(time.Millisecond)
			if err != nil {
				logger.Debug("%s %s failed after %s: %v", req.Method, req.URL.Path, elapsed, err)
				return nil, err
			}
			logger.Debug("%s %s -> %d (%s)", req.Method, req.URL.Path, resp.StatusCode, elapsed)
			return resp, nil
		})
	}
}

// unwrapURLError strips the *url.Error the http.Client adds around transport failures.
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
