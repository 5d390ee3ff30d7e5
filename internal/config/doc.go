// Package config loads, validates, and normalizes the reelsmith TOML
// configuration file.
package config
