package driving

import "github.com/custodia-labs/docchat/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings: defaults, then the config file, then the environment.
	Get() (*domain.AppSettings, error)

	// Save persists settings to the config file.
	Save(settings *domain.AppSettings) error

	// Set updates one setting by its config key.
	Set(key, value string) error

	// Validate checks the current settings.
	Validate() error

	// Keys lists the supported config keys.
	Keys() []string

	// ConfigPath returns the config file path.
	ConfigPath() string
}
