// Package config loads, normalizes, and validates gazeheat configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GAZEHEAT_API_TOKEN. The Config type centralizes every knob the CLI, the
// HTTP service, and the render pipeline need, so output directories, render
// constants, and external tool names are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
