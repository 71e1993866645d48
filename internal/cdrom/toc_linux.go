//go:build linux

package cdrom

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"cddb/internal/disc"
)

// Linux cdrom.h
const (
	cdromReadTOCHeader = 0x5305
	cdromReadTOCEntry  = 0x5306
	cdromLBA           = 0x01
	cdromLeadout       = 0xAA
	cdromDataTrack     = 0x04
)

type tocHeader struct {
	First uint8
	Last  uint8
}

// tocEntry mirrors struct cdrom_tocentry with the address union read as LBA.
type tocEntry struct {
	Track    uint8
	AdrCtrl  uint8
	Format   uint8
	_        uint8
	LBA      int32
	DataMode uint8
	_        [3]uint8
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

// ReadTOC reads the table of contents of the disc in device.
func ReadTOC(device string) (*disc.Disc, error) {
	fd, err := unix.Open(device, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	defer unix.Close(fd)

	var hdr tocHeader
	if err := ioctl(fd, cdromReadTOCHeader, unsafe.Pointer(&hdr)); err != nil {
		return nil, fmt.Errorf("read toc header from %s: %w", device, err)
	}
	if hdr.Last < hdr.First {
		return nil, disc.ErrNoTracks
	}

	entries := make([]TOCEntry, 0, int(hdr.Last-hdr.First)+1)
	for n := int(hdr.First); n <= int(hdr.Last); n++ {
		e, err := readEntry(fd, uint8(n))
		if err != nil {
			return nil, fmt.Errorf("read toc entry %d from %s: %w", n, device, err)
		}
		entries = append(entries, TOCEntry{Track: n, LBA: int(e.LBA), Data: e.AdrCtrl&cdromDataTrack != 0})
	}
	leadout, err := readEntry(fd, cdromLeadout)
	if err != nil {
		return nil, fmt.Errorf("read lead-out from %s: %w", device, err)
	}
	return DiscFromTOC(entries, int(leadout.LBA))
}

func readEntry(fd int, track uint8) (tocEntry, error) {
	e := tocEntry{Track: track, Format: cdromLBA}
	err := ioctl(fd, cdromReadTOCEntry, unsafe.Pointer(&e))
	return e, err
}
