package config

// Config represents the complete mortar configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	State   StateConfig   `yaml:"state"`
	API     APIConfig     `yaml:"api,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`

	// Fingerprint is the BLAKE3 hash of the loaded config file, set by
	// Load. Not part of the YAML surface.
	Fingerprint string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// StateConfig defines where the SQLite store lives.
type StateConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines the observability HTTP API settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// HistoryConfig bounds how much run history the ops surfaces fetch.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "mortar",
			LogLevel:  "INFO",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./data/mortar.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8480",
		},
		History: HistoryConfig{
			Limit: 50,
		},
	}
}
