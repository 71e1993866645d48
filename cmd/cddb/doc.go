// Command cddb looks up, reads and submits CD metadata against a CDDB or
// FreeDB compatible server, and manages the local record cache.
package main
