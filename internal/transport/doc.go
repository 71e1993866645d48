// Package transport provides the byte-stream primitives the CDDB protocol
// engine runs on: a timeout-bounded TCP dial, a line-oriented connection
// with per-operation deadlines, and a line reader for cached record files.
//
// Timeouts surface as errors wrapping ErrTimeout, resolution failures wrap
// ErrUnknownHost and connect failures wrap ErrConnect, so callers classify
// them with errors.Is.
package transport
