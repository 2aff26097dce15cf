package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Durations are
// strings like "3s". Pointer fields distinguish "absent" from "empty".
type JSONConfig struct {
	ServerBaseURL       *string `json:"server_base_url"`
	StoragePath         *string `json:"storage_path"`
	OnlineCheckInterval string  `json:"online_check_interval"`
	LogLevel            string  `json:"log_level"`
}

// parseJSON overlays cfg with the fields present in the file at path.
// An explicit "storage_path": "" disables persistence.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerBaseURL != nil {
		cfg.ServerBaseURL = *jc.ServerBaseURL
	}
	if jc.StoragePath != nil {
		cfg.StoragePath = *jc.StoragePath
	}
	if jc.OnlineCheckInterval != "" {
		d, err := time.ParseDuration(jc.OnlineCheckInterval)
		if err != nil {
			return fmt.Errorf("parse online_check_interval: %w", err)
		}
		cfg.OnlineCheckInterval = d
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	return nil
}
