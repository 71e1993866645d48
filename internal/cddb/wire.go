package cddb

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cddb/internal/transport"
)

// wire is the transport-specific half of a command exchange. The session
// formats commands and interprets response codes; the wire decides how a
// command line and a submission travel to the server.
type wire interface {
	// send issues one formatted command. Over HTTP it also consumes the
	// HTTP status line and headers, leaving the CDDB response to read.
	send(cmd string) error
	// beginSubmit announces a submission of size bytes for category/id.
	beginSubmit(category string, id uint32, size int) error
	// acknowledgesSubmit reports whether the server answers beginSubmit
	// before the record is sent.
	acknowledgesSubmit() bool
	// sendPayload transmits the record and ends the submission.
	sendPayload(payload []byte) error
	readLine() (string, error)
	// persistent reports whether the connection survives a command.
	persistent() bool
	close() error
}

// wireReader adapts a wire to xmcd.LineReader.
type wireReader struct{ w wire }

func (r wireReader) ReadLine() (string, error) { return r.w.readLine() }

var errMalformedStatus = errors.New("malformed HTTP status line")

// httpStatusError is a non-200 HTTP reply.
type httpStatusError struct {
	status int
	line   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP status %d (%s)", e.status, e.line)
}

// cddbpWire speaks the line protocol directly on the socket.
type cddbpWire struct {
	conn *transport.Conn
}

func (w *cddbpWire) send(cmd string) error {
	return w.conn.WriteString(cmd + "\n")
}

func (w *cddbpWire) beginSubmit(category string, id uint32, _ int) error {
	return w.send(cmdWrite.format(category, id))
}

func (w *cddbpWire) acknowledgesSubmit() bool { return true }

func (w *cddbpWire) sendPayload(payload []byte) error {
	if _, err := w.conn.Write(payload); err != nil {
		return err
	}
	return w.conn.WriteString(".\n")
}

func (w *cddbpWire) readLine() (string, error) { return w.conn.ReadLine() }

func (w *cddbpWire) persistent() bool { return true }

func (w *cddbpWire) close() error { return w.conn.Close() }

// httpWire tunnels commands through HTTP/1.0 requests, one per connection.
type httpWire struct {
	conn  *transport.Conn
	opts  *Options
	hello string
	email string
}

func newHTTPWire(conn *transport.Conn, opts *Options, user, host string) *httpWire {
	return &httpWire{
		conn:  conn,
		opts:  opts,
		hello: strings.Join([]string{user, host, opts.ClientName, opts.ClientVersion}, " "),
		email: user + "@" + host,
	}
}

// target returns the request URI. Proxies need the absolute form.
func (w *httpWire) target(path string) string {
	if w.opts.Proxy.Server == "" {
		return path
	}
	return "http://" + w.serverHost() + path
}

func (w *httpWire) serverHost() string {
	return w.opts.Server + ":" + strconv.Itoa(w.opts.HTTPPort)
}

func (w *httpWire) commonHeaders(b *strings.Builder) {
	fmt.Fprintf(b, "Host: %s\r\n", w.serverHost())
	fmt.Fprintf(b, "User-Agent: %s/%s\r\n", w.opts.ClientName, w.opts.ClientVersion)
	if p := w.opts.Proxy; p.Server != "" && p.Username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(p.Username + ":" + p.Password))
		fmt.Fprintf(b, "Proxy-Authorization: Basic %s\r\n", creds)
	}
}

func (w *httpWire) send(cmd string) error {
	query := "cmd=" + url.QueryEscape(cmd) +
		"&hello=" + url.QueryEscape(w.hello) +
		"&proto=" + strconv.Itoa(ProtocolLevel)

	var b strings.Builder
	fmt.Fprintf(&b, "GET %s?%s HTTP/1.0\r\n", w.target(w.opts.QueryPath), query)
	w.commonHeaders(&b)
	b.WriteString("\r\n")
	if err := w.conn.WriteString(b.String()); err != nil {
		return err
	}
	return w.readStatus()
}

func (w *httpWire) beginSubmit(category string, id uint32, size int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "POST %s HTTP/1.0\r\n", w.target(w.opts.SubmitPath))
	w.commonHeaders(&b)
	fmt.Fprintf(&b, "Category: %s\r\n", category)
	fmt.Fprintf(&b, "Discid: %08x\r\n", id)
	fmt.Fprintf(&b, "User-Email: %s\r\n", w.email)
	b.WriteString("Submit-Mode: submit\r\n")
	if w.opts.Charset != "" {
		fmt.Fprintf(&b, "Charset: %s\r\n", w.opts.Charset)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n", size)
	b.WriteString("\r\n")
	return w.conn.WriteString(b.String())
}

func (w *httpWire) acknowledgesSubmit() bool { return false }

func (w *httpWire) sendPayload(payload []byte) error {
	if _, err := w.conn.Write(payload); err != nil {
		return err
	}
	return w.readStatus()
}

// readStatus accepts only a 200 status line and skips the headers up to
// the blank line.
func (w *httpWire) readStatus() error {
	line, err := w.conn.ReadLine()
	if err != nil {
		return err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return fmt.Errorf("%q: %w", line, errMalformedStatus)
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("%q: %w", line, errMalformedStatus)
	}
	if status != 200 {
		return &httpStatusError{status: status, line: line}
	}
	for {
		header, err := w.conn.ReadLine()
		if err != nil {
			return err
		}
		if header == "" {
			return nil
		}
	}
}

func (w *httpWire) readLine() (string, error) { return w.conn.ReadLine() }

func (w *httpWire) persistent() bool { return false }

func (w *httpWire) close() error { return w.conn.Close() }
