// Package config loads daemon settings from a TOML file.
//
// Defaults come from Default(); Load overlays a file on top and
// rejects unknown keys, so a typo fails fast instead of silently
// using a default. Core packages never read config themselves; the
// daemon translates these values into constructor arguments.
package config
