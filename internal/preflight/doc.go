// Package preflight provides readiness checks for the server, the cache
// directory and the CD device the client depends on.
//
// The CLI "cddb check" command runs RunAll and prints one line per check.
// Each check is gated by its config setting: a disabled cache or a
// cache-only session skips the corresponding check.
package preflight
