// Package config loads, normalizes, and validates cddb configuration data.
//
// It supplies repository defaults, resolves the XDG config and cache
// locations, reads TOML files, and honours a .env file plus the CDDB_*
// environment overrides. Validation rejects settings the protocol engine
// cannot use (bad ports, unknown cache modes or charsets, malformed email)
// before a session is created.
package config
