package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PromptOverlayChanged is true when the overlay path changed; the
	// prompt catalog should reload its templates.
	PromptOverlayChanged bool
	NewOverlayPath       string

	// GeneratorChanged is true when any generator tuning knob changed.
	GeneratorChanged bool
	NewGenerator     GeneratorConfig
}

// Any reports whether the diff carries at least one hot-reloadable change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.PromptOverlayChanged || d.GeneratorChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Prompts.OverlayPath != new.Prompts.OverlayPath {
		d.PromptOverlayChanged = true
		d.NewOverlayPath = new.Prompts.OverlayPath
	}

	if old.Generator != new.Generator {
		d.GeneratorChanged = true
		d.NewGenerator = new.Generator
	}

	return d
}
