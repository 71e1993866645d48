// Package xmcd reads and writes the xmcd record format that CDDB servers
// return for "cddb read" and accept for "cddb write", and that the local
// cache stores verbatim.
//
// Parse is a line-driven state machine:
//
//	start -> track_offsets -> disc_length -> disc_title
//	      -> [disc_year] -> [disc_genre] -> track_title -> stop
//
// Year and genre are optional: a line that does not belong to the current
// state moves the machine on and is tested again against the next state.
// DTITLE and TTITLE values may span several lines. Text before the " / "
// separator is kept as title until a later line shows the separator, at
// which point it is moved to the artist; a value that never contains the
// separator is a title only.
package xmcd
