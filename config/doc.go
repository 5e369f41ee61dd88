// Package config loads service configuration from defaults, an optional
// YAML file, and environment variable overrides, in that order.
package config
