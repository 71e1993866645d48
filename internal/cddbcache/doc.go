// Package cddbcache stores xmcd records on disk in the layout used by
// FreeDB mirrors, <dir>/<category>/<discid>, and resolves which category
// a cached disc ID lives in.
//
// Records are written through a temp file and rename under a directory
// lock, so readers never see a partial record. An optional SQLite index
// speeds up category resolution; it is a hint only and the file system
// remains authoritative.
package cddbcache
