// Package cddb implements the client side of the CDDB/FreeDB disc metadata
// protocol.
//
// A Session holds the server configuration and at most one connection.
// Commands travel either over a CDDBP socket, which is kept open between
// commands after the banner/hello/proto handshake, or tunnelled through
// HTTP/1.0 requests, one connection per command, optionally via a proxy.
// Read and Query consult the local record cache (see package cddbcache)
// before the network according to the cache mode; records fetched from the
// server are written through to the cache as they are parsed.
//
// Every failing operation returns an *Error whose Code is also kept as the
// session's last error (Errno) until the next operation. Transport
// failures and the session-invalidating 409/530 replies close the
// connection so the next operation reconnects.
package cddb
