// Package config loads squadfleet's settings from an optional YAML file and
// SQUADFLEET_* environment variables, in that order of precedence from low
// to high.
package config
