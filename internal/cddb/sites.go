package cddb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"cddb/internal/cddbcache"
)

// SiteProtocol is the access protocol of a mirror site.
type SiteProtocol int

const (
	SiteUnknown SiteProtocol = iota
	SiteCDDBP
	SiteHTTP
)

func (p SiteProtocol) String() string {
	switch p {
	case SiteCDDBP:
		return "cddbp"
	case SiteHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Site is one entry of the server's mirror list. Latitude is negative for
// the southern hemisphere and longitude negative for the western.
type Site struct {
	Address     string
	Protocol    SiteProtocol
	Port        int
	QueryPath   string
	Latitude    float64
	Longitude   float64
	Description string
}

var reSite = regexp.MustCompile(`^([[:graph:]]+)[[:blank:]]+([[:alpha:]]+)[[:blank:]]+([0-9]+)[[:blank:]]+([[:graph:]]+)[[:blank:]]+([NS])([0-9.]+)[[:blank:]]+([EW])([0-9.]+)[[:blank:]]+(.*)$`)

// ParseSite parses one line of a sites response.
func ParseSite(line string) (*Site, error) {
	m := reSite.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("site line %q", line)
	}
	site := &Site{Address: m[1], QueryPath: m[4], Description: m[9]}
	switch m[2] {
	case "cddbp":
		site.Protocol = SiteCDDBP
	case "http":
		site.Protocol = SiteHTTP
	}
	site.Port, _ = strconv.Atoi(m[3])

	lat, err := strconv.ParseFloat(m[6], 64)
	if err != nil {
		return nil, fmt.Errorf("site latitude %q: %w", m[6], err)
	}
	if m[5] == "S" {
		lat = -lat
	}
	long, err := strconv.ParseFloat(m[8], 64)
	if err != nil {
		return nil, fmt.Errorf("site longitude %q: %w", m[8], err)
	}
	if m[7] == "W" {
		long = -long
	}
	site.Latitude, site.Longitude = lat, long
	return site, nil
}

// Sites fetches the mirror list and returns its length. Iterate with
// FirstSite and NextSite. Cache-only sessions have no server to ask.
func (s *Session) Sites(ctx context.Context) (int, error) {
	const op = "sites"
	s.sites = nil
	s.siteIdx = 0

	if s.opts.CacheMode == cddbcache.ModeOnly {
		return 0, s.fail(op, CodeNotConnected, errors.New("session is in cache-only mode"))
	}
	if err := s.connect(ctx); err != nil {
		return 0, err
	}
	defer s.finish()

	if err := s.sendCommand(op, cmdSites); err != nil {
		return 0, err
	}
	code, msg, err := s.readResponse(op)
	if err != nil {
		return 0, err
	}
	switch code {
	case 210:
	case 401:
		s.errno = CodeOK
		return 0, nil
	default:
		return 0, s.fail(op, CodeUnknown, fmt.Errorf("unexpected response %d %s", code, msg))
	}

	lines, err := s.readList(op)
	if err != nil {
		return 0, err
	}
	for _, line := range lines {
		site, err := ParseSite(line)
		if err != nil {
			s.sites = nil
			return 0, s.fail(op, CodeInvalidResponse, err)
		}
		s.sites = append(s.sites, site)
	}
	s.errno = CodeOK
	return len(s.sites), nil
}

// FirstSite rewinds the site iterator and returns the first site, or nil.
func (s *Session) FirstSite() *Site {
	s.siteIdx = 0
	return s.NextSite()
}

// NextSite returns the next site, or nil after the last one.
func (s *Session) NextSite() *Site {
	if s.siteIdx >= len(s.sites) {
		return nil
	}
	site := *s.sites[s.siteIdx]
	s.siteIdx++
	return &site
}
