// Package disc holds the compact-disc data model shared by the CDDB protocol
// engine: discs, their tracks and the category buckets the database uses as
// namespaces.
//
// A Disc owns its tracks. Tracks are created standalone with NewTrack and
// attached with Disc.AddTrack, which assigns the dense 1-based track number;
// the track keeps a non-owning back-reference to its disc so that artist and
// length lookups can fall back to disc-level values. Clone produces a deep
// copy whose tracks point at the new disc.
//
// The disc ID is a 32-bit checksum computed by CalcDiscID from the track
// frame offsets, the disc length and the track count. It is not collision
// resistant; servers disambiguate colliding IDs with match lists.
package disc
