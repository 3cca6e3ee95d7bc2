package driven

import "github.com/custodia-labs/vaultgraph/internal/core/domain"

// SettingsStore loads and persists application settings.
type SettingsStore interface {
	// Load returns the persisted settings with defaults applied.
	// A missing store yields pure defaults, not an error.
	Load() (domain.Settings, error)

	// Save persists the settings.
	Save(settings domain.Settings) error

	// Path returns the backing location, for diagnostics.
	Path() string
}
