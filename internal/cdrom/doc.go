// Package cdrom reads the table of contents of an audio CD and turns it
// into a disc record with frame offsets, length and disc ID, ready for a
// query. On Linux it also watches udev for inserted media.
package cdrom
