package xmcd

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cddb/internal/disc"
)

// ErrInvalidMatch is returned for a query match line that does not have the
// form "<category> <discid> <artist> / <title>".
var ErrInvalidMatch = errors.New("invalid query match line")

var reQueryMatch = regexp.MustCompile(`^([[:alpha:]]+)[[:blank:]]([[:xdigit:]]{8})[[:blank:]]((.*) / (.*)|(.*))$`)

// ParseMatch fills category, disc ID, artist and title of d from one query
// match line. The disc ID must be eight hex digits. A line without the
// separator sets only the title.
func ParseMatch(line string, d *disc.Disc) error {
	m := reQueryMatch.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("%q: %w", line, ErrInvalidMatch)
	}
	id, err := strconv.ParseUint(m[2], 16, 32)
	if err != nil {
		return fmt.Errorf("%q: disc id: %w", line, ErrInvalidMatch)
	}
	d.SetCategory(m[1])
	d.ID = uint32(id)
	if strings.Contains(m[3], Separator) {
		d.Artist = m[4]
		d.Title = m[5]
	} else {
		d.Title = m[6]
	}
	return nil
}
