// Package config holds the configuration for the blisscore library: the
// Redis connection, stream defaults and scanning defaults.
//
// Configuration is loaded from a YAML file with environment variable
// overrides (BLISS_ prefix), and validated before use. The consuming
// service passes the loaded Config explicitly into the constructors that
// need it; there is no ambient configuration lookup.
package config
