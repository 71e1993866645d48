//go:build !linux

package cdrom

import "cddb/internal/disc"

// ReadTOC is only implemented on Linux.
func ReadTOC(device string) (*disc.Disc, error) {
	return nil, ErrUnsupported
}
