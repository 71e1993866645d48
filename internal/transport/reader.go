package transport

import (
	"bufio"
	"errors"
	"io"
)

// Reader yields lines from any byte stream, typically a cached record file.
// It has the same line semantics as Conn.ReadLine but no deadlines.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadLine returns the next line without its CR/LF terminator, or io.EOF.
func (r *Reader) ReadLine() (string, error) {
	line, err := r.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return trimEOL(line), nil
		}
		return "", err
	}
	return trimEOL(line), nil
}
