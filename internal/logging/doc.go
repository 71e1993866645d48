// Package logging assembles structured slog loggers and formatting helpers
// used by the CDDB client and its CLI.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// field names (session_id, disc_id, category, ...) every component tags its
// records with. NewNop returns a logger for tests and for library callers
// that do not pass one.
package logging
