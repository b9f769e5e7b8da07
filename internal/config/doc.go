// Package config loads seedlock settings.
//
// Sources are layered, highest priority first:
//   - command-line flags
//   - environment variables prefixed with SEEDLOCK_ (caarlos0/env)
//   - an optional YAML file named by --config or SEEDLOCK_CONFIG
//   - built-in defaults
//
// Passwords are never read from configuration; see core.GetPasswordFromEnv.
package config
