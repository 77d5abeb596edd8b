// Package config loads, validates, and normalizes the TOML configuration
// used by every covered subsystem.
package config
