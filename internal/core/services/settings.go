package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyAPIBaseURL        = "api.base_url"
	keyAPITimeout        = "api.timeout"
	keyAPIRateLimit      = "api.rate_limit"
	keyAPIBurst          = "api.burst"
	keyAuthToken         = "auth.token"
	keyAuthTokenFile     = "auth.token_file"
	keyPollInterval      = "poll.interval"
	keyPollMaxDuration   = "poll.max_duration"
	keyUploadConcurrency = "upload.concurrency"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvAPIURL       = "DOCCHAT_API_URL"
	EnvToken        = "DOCCHAT_TOKEN"
	EnvTokenFile    = "DOCCHAT_TOKEN_FILE"
	EnvPollInterval = "DOCCHAT_POLL_INTERVAL"
)

// settingKeys lists the supported keys in display order.
var settingKeys = []string{
	keyAPIBaseURL,
	keyAPITimeout,
	keyAPIRateLimit,
	keyAPIBurst,
	keyAuthToken,
	keyAuthTokenFile,
	keyPollInterval,
	keyPollMaxDuration,
	keyUploadConcurrency,
}

// SettingsService manages application settings.
// Values resolve in order: defaults, the config store, then the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	validate    *validator.Validate
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading the process environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup. Used by tests.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		API: domain.APISettings{
			BaseURL:   s.getString(keyAPIBaseURL, defaults.API.BaseURL),
			Timeout:   s.getDuration(keyAPITimeout, defaults.API.Timeout),
			RateLimit: s.getFloat(keyAPIRateLimit, defaults.API.RateLimit),
			Burst:     s.getInt(keyAPIBurst, defaults.API.Burst),
		},
		Auth: domain.AuthSettings{
			Token:     s.configStore.GetString(keyAuthToken),
			TokenFile: s.configStore.GetString(keyAuthTokenFile),
		},
		Poll: domain.PollSettings{
			Interval:    s.getDuration(keyPollInterval, defaults.Poll.Interval),
			MaxDuration: s.getDuration(keyPollMaxDuration, defaults.Poll.MaxDuration),
		},
		Upload: domain.UploadSettings{
			Concurrency: s.getInt(keyUploadConcurrency, defaults.Upload.Concurrency),
		},
	}

	if err := s.applyEnv(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyEnv overlays environment variables on settings.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) error {
	if v, ok := s.env(EnvAPIURL); ok {
		settings.API.BaseURL = v
	}
	if v, ok := s.env(EnvToken); ok {
		settings.Auth.Token = v
	}
	if v, ok := s.env(EnvTokenFile); ok {
		settings.Auth.TokenFile = v
	}
	if v, ok := s.env(EnvPollInterval); ok {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		settings.Poll.Interval = d
	}
	return nil
}

func (s *SettingsService) env(name string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	v, ok := s.lookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.check(settings); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyAPIBaseURL, settings.API.BaseURL},
		{keyAPITimeout, settings.API.Timeout.String()},
		{keyAPIRateLimit, settings.API.RateLimit},
		{keyAPIBurst, settings.API.Burst},
		{keyPollInterval, settings.Poll.Interval.String()},
		{keyPollMaxDuration, settings.Poll.MaxDuration.String()},
		{keyUploadConcurrency, settings.Upload.Concurrency},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Auth keys are managed by Set and the auth service.
	return nil
}

// Set updates one setting by key, validating the result before storing it.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	value = strings.TrimSpace(value)
	var stored any = value

	switch key {
	case keyAPIBaseURL:
		settings.API.BaseURL = value
	case keyAuthToken:
		settings.Auth.Token = value
	case keyAuthTokenFile:
		settings.Auth.TokenFile = value
	case keyAPITimeout, keyPollInterval, keyPollMaxDuration:
		d, perr := parseDuration(value)
		if perr != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, perr)
		}
		switch key {
		case keyAPITimeout:
			settings.API.Timeout = d
		case keyPollInterval:
			settings.Poll.Interval = d
		default:
			settings.Poll.MaxDuration = d
		}
		stored = d.String()
	case keyAPIRateLimit:
		f, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, perr)
		}
		settings.API.RateLimit = f
		stored = f
	case keyAPIBurst, keyUploadConcurrency:
		n, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, perr)
		}
		if key == keyAPIBurst {
			settings.API.Burst = n
		} else {
			settings.Upload.Concurrency = n
		}
		stored = n
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	if err := s.check(settings); err != nil {
		return err
	}
	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	logger.Debug("settings: %s updated", key)
	return nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.check(settings)
}

func (s *SettingsService) check(settings *domain.AppSettings) error {
	if err := s.validate.Struct(settings); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Keys lists the supported config keys.
func (s *SettingsService) Keys() []string {
	out := make([]string, len(settingKeys))
	copy(out, settingKeys)
	return out
}

// ConfigPath returns the config file path.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := parseDuration(val)
	if err != nil {
		logger.Warn("settings: ignoring %s=%q: %v", key, val, err)
		return defaultVal
	}
	return d
}

// parseDuration parses a duration string. A bare integer is read as milliseconds.
func parseDuration(str string) (time.Duration, error) {
	if ms, err := strconv.Atoi(str); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(str)
}
