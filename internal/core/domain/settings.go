package domain

import "time"

// Default settings values.
const (
	DefaultBaseURL           = "http://localhost:8080"
	DefaultRequestTimeout    = 30 * time.Second
	DefaultPollInterval      = 1000 * time.Millisecond
	DefaultRateLimit         = 10.0
	DefaultBurst             = 20
	DefaultUploadConcurrency = 3
)

// APISettings configures the backend transport.
type APISettings struct {
	// BaseURL is the backend root URL.
	BaseURL string `validate:"required,url"`

	// Timeout bounds non-streaming requests. Streams are bounded only by their context.
	Timeout time.Duration `validate:"gte=0"`

	// RateLimit is the sustained request rate per second; 0 disables pacing.
	RateLimit float64 `validate:"gte=0"`

	// Burst is the token bucket size used with RateLimit.
	Burst int `validate:"gte=0"`
}

// AuthSettings configures where the bearer token is read from.
type AuthSettings struct {
	// Token is a literal bearer token.
	Token string

	// TokenFile is a file holding the bearer token, re-read when it changes.
	TokenFile string
}

// Kind reports which token source these settings select.
// A token file takes precedence over a literal token.
func (a AuthSettings) Kind() TokenSourceKind {
	switch {
	case a.TokenFile != "":
		return TokenSourceFile
	case a.Token != "":
		return TokenSourceStatic
	default:
		return TokenSourceNone
	}
}

// PollSettings configures the document status poller.
type PollSettings struct {
	// Interval is the fixed delay between status fetches.
	Interval time.Duration `validate:"gt=0"`

	// MaxDuration stops polling a document after this long; 0 polls until terminal.
	MaxDuration time.Duration `validate:"gte=0"`
}

// UploadSettings configures document uploads.
type UploadSettings struct {
	// Concurrency is the number of files uploaded in parallel.
	Concurrency int `validate:"gte=1"`
}

// AppSettings holds all user-configurable settings.
type AppSettings struct {
	API    APISettings
	Auth   AuthSettings
	Poll   PollSettings
	Upload UploadSettings
}

// DefaultAppSettings returns settings with default values.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		API: APISettings{
			BaseURL:   DefaultBaseURL,
			Timeout:   DefaultRequestTimeout,
			RateLimit: DefaultRateLimit,
			Burst:     DefaultBurst,
		},
		Poll: PollSettings{
			Interval: DefaultPollInterval,
		},
		Upload: UploadSettings{
			Concurrency: DefaultUploadConcurrency,
		},
	}
}
