// Package config loads Lumen's TOML configuration.
//
// # Discovery
//
// Load reads the path it is given, or ~/.config/lumen/config.toml when the
// path is empty. A missing file is not an error; Default is returned instead.
// Fields that are missing, blank or non-positive keep their defaults.
//
// # Format
//
//	api_bind = "127.0.0.1:8000"
//	log_file = "~/.local/state/lumen/lumen.log"
//	page_size = 100
//	thumbnail_concurrency = 0
//
//	[poll]
//	task_ms = 2000
//	all_tasks_ms = 5000
//	health_ms = 10000
//
//	[timeouts]
//	default = 30000
//	upload = 120000
//	search = 60000
//	processing = 300000
//	preload = 180000
//	health = 10000
//
// Timeouts are request budgets in milliseconds, keyed by request kind. An
// unknown key is rejected so a typo does not silently keep a default.
// thumbnail_concurrency caps parallel thumbnail downloads; zero leaves them
// unbounded.
//
// # Path Expansion
//
// A leading ~ in the config path or log_file is expanded to the home
// directory and relative paths are made absolute.
package config
