package cddbcache

import (
	"fmt"
	"strings"
)

// Mode is the cache policy of a session.
type Mode int

const (
	// ModeOff never reads or writes the cache.
	ModeOff Mode = iota
	// ModeOn reads the cache before the network and stores fetched records.
	ModeOn
	// ModeOnly reads the cache and never touches the network.
	ModeOnly
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeOn:
		return "on"
	case ModeOnly:
		return "only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Enabled reports whether the cache is consulted at all.
func (m Mode) Enabled() bool {
	return m == ModeOn || m == ModeOnly
}

// ParseMode accepts "off", "on" and "only" in any case.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "off":
		return ModeOff, nil
	case "on", "":
		return ModeOn, nil
	case "only":
		return ModeOnly, nil
	default:
		return ModeOff, fmt.Errorf("unknown cache mode %q", value)
	}
}
