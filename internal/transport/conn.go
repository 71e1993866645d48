package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTimeout marks an operation that ran past its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrUnknownHost marks a failed host name resolution.
	ErrUnknownHost = errors.New("unknown host")
	// ErrConnect marks a failed TCP connect.
	ErrConnect = errors.New("connect failed")
)

// DefaultBufferSize is the read buffer used when none is configured.
const DefaultBufferSize = 1024

// Conn is a line-oriented connection with a per-operation timeout. Every
// read and write gets a fresh deadline, so a slow but progressing server
// is not cut off by the total length of a response.
type Conn struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Dial resolves host and connects to port. Resolution and connect are each
// bounded by timeout and by the context deadline, whichever comes first.
func Dial(ctx context.Context, host string, port int, timeout time.Duration, bufferSize int) (*Conn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("resolve: empty host name: %w", ErrUnknownHost)
	}

	addrs, err := resolve(ctx, host, timeout)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	var dialer net.Dialer
	var lastErr error
	for _, addr := range addrs {
		raw, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
		if err == nil {
			return NewConn(raw, timeout, bufferSize), nil
		}
		lastErr = err
		if isTimeout(err) || dialCtx.Err() != nil {
			return nil, fmt.Errorf("connect %s:%d: %w: %w", host, port, ErrTimeout, err)
		}
	}
	return nil, fmt.Errorf("connect %s:%d: %w: %w", host, port, ErrConnect, lastErr)
}

func resolve(ctx context.Context, host string, timeout time.Duration) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}
	lookupCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	addrs, err := net.DefaultResolver.LookupHost(lookupCtx, host)
	if err != nil {
		if isTimeout(err) || lookupCtx.Err() != nil {
			return nil, fmt.Errorf("resolve %s: %w: %w", host, ErrTimeout, err)
		}
		return nil, fmt.Errorf("resolve %s: %w: %w", host, ErrUnknownHost, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %s: no addresses: %w", host, ErrUnknownHost)
	}
	return addrs, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// NewConn wraps an established connection. A non-positive timeout disables
// deadlines.
func NewConn(conn net.Conn, timeout time.Duration, bufferSize int) *Conn {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Conn{
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, bufferSize),
		timeout: timeout,
	}
}

// ReadLine returns the next line without its CR/LF terminator. A final line
// without a terminator is returned as is; io.EOF is returned once nothing is
// left.
func (c *Conn) ReadLine() (string, error) {
	if err := c.deadline(c.conn.SetReadDeadline); err != nil {
		return "", err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return trimEOL(line), nil
		}
		return "", c.wrap("read", err)
	}
	return trimEOL(line), nil
}

// Write sends p in full.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.deadline(c.conn.SetWriteDeadline); err != nil {
		return 0, err
	}
	n, err := c.conn.Write(p)
	if err != nil {
		return n, c.wrap("write", err)
	}
	return n, nil
}

// WriteString sends s in full.
func (c *Conn) WriteString(s string) error {
	_, err := c.Write([]byte(s))
	return err
}

// Printf formats and sends a string.
func (c *Conn) Printf(format string, args ...any) error {
	return c.WriteString(fmt.Sprintf(format, args...))
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// deadline arms the next operation. A connection that is already closed is
// left to the read or write itself, which reports EOF or the close error
// after any buffered data.
func (c *Conn) deadline(set func(time.Time) error) error {
	if c.timeout <= 0 {
		return nil
	}
	if err := set(time.Now().Add(c.timeout)); err != nil {
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return fmt.Errorf("set deadline: %w", err)
	}
	return nil
}

func (c *Conn) wrap(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func trimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}
