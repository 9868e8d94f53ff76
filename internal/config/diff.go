package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// DelaysChanged is true when any engine debounce window changed.
	DelaysChanged bool
	NewDelays     EngineConfig

	// AssistChanged is true when the backend endpoint, key, or languages
	// changed. Applying it requires rebuilding the assist client.
	AssistChanged bool

	// DictionaryChanged is true when the dictionary backend or its
	// connection settings changed. Applying it requires a restart.
	DictionaryChanged bool
}

// Changed reports whether the diff carries any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.DelaysChanged || d.AssistChanged || d.DictionaryChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Engine != new.Engine {
		d.DelaysChanged = true
		d.NewDelays = new.Engine
	}

	if old.Assist.BaseURL != new.Assist.BaseURL ||
		old.Assist.APIKey != new.Assist.APIKey ||
		old.Assist.TimeoutMS != new.Assist.TimeoutMS ||
		!equalStrings(old.Assist.Languages, new.Assist.Languages) {
		d.AssistChanged = true
	}

	if old.Dictionary != new.Dictionary {
		d.DictionaryChanged = true
	}

	return d
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
