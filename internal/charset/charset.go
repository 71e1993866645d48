// Package charset converts between the character set a CDDB server speaks
// and the UTF-8 strings used everywhere else in the program.
package charset

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Codec decodes server text to UTF-8 and encodes UTF-8 for submission.
// The zero value and a UTF-8 codec pass text through unchanged.
type Codec struct {
	name string
	enc  encoding.Encoding
}

// New looks up a charset by any WHATWG label ("utf-8", "latin1",
// "iso-8859-15", "windows-1252", ...).
func New(name string) (*Codec, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = label
	}
	if canonical == "utf-8" {
		return &Codec{name: canonical}, nil
	}
	return &Codec{name: canonical, enc: enc}, nil
}

// UTF8 returns the pass-through codec.
func UTF8() *Codec {
	return &Codec{name: "utf-8"}
}

// Name returns the canonical charset name.
func (c *Codec) Name() string {
	if c == nil || c.name == "" {
		return "utf-8"
	}
	return c.name
}

// Passthrough reports whether the codec leaves text unchanged.
func (c *Codec) Passthrough() bool {
	return c == nil || c.enc == nil
}

// Decode converts a line received from the server into UTF-8. Bytes that do
// not decode are replaced with U+FFFD rather than failing the whole record.
func (c *Codec) Decode(s string) string {
	if c.Passthrough() {
		if utf8.ValidString(s) {
			return s
		}
		return strings.ToValidUTF8(s, "�")
	}
	out, _, err := transform.String(c.enc.NewDecoder(), s)
	if err != nil {
		return strings.ToValidUTF8(s, "�")
	}
	return out
}

// Encode converts UTF-8 text into the server charset. Runes the charset
// cannot represent are replaced by the charset's substitution byte.
func (c *Codec) Encode(s string) string {
	if c.Passthrough() {
		return s
	}
	out, _, err := transform.String(encoding.ReplaceUnsupported(c.enc.NewEncoder()), s)
	if err != nil {
		return s
	}
	return out
}
