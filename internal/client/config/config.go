package config

import "time"

// Config holds runtime settings for the authkeeper CLI.
//
// Fields:
//   - ServerBaseURL: root of the JSON API, endpoints are appended to it.
//   - StoragePath: SQLite file holding the persisted session. Empty disables
//     persistence (the session then lives only as long as the process).
//   - OnlineCheckInterval: how often the REPL probes server reachability.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerBaseURL       string
	StoragePath         string
	OnlineCheckInterval time.Duration
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:5000/api"
	c.StoragePath = "session.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the JSON file at jsonPath (skipped when empty). Command-line flags are
// applied on top by the caller.
func LoadConfig(jsonPath string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, jsonPath); err != nil {
		return nil, err
	}
	return cfg, nil
}
