// Package config loads runtime configuration for the authkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file passed to LoadConfig (the CLI's --config flag).
//  3. Command-line flags bound by the CLI, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_base_url": "http://127.0.0.1:5000/api",
//	  "storage_path": "session.db",
//	  "online_check_interval": "3s",
//	  "log_level": "info"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
