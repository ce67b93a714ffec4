// Package config provides configuration management for imagenet-downloader.
//
// This package handles:
//   - Loading and saving settings from TOML files
//   - Default configuration values
//   - Credential overrides from the environment
//   - Validation of numeric limits
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Dataset in the working directory
//	// 5 concurrent category downloads
//	// 10% validation split
//
// # Loading from File
//
//	settings, err := config.Load("~/.config/imagenet-dl/config.toml")
//	if err != nil {
//	    // Parse or validation error; a missing file yields defaults
//	}
//
// # Example File
//
//	base_dir = "~/datasets/imagenet"
//	max_concurrent_downloads = 5
//	validation_split = 10
//
//	[credentials]
//	username = "alice"
//	access_key = "..."
//
//	[resize]
//	enabled = true
//	max_size = 500
package config
