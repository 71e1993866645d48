package testsupport

import (
	"bufio"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// ServerMode selects how the fake server speaks.
type ServerMode int

const (
	// ModeCDDBP is the line protocol with banner and persistent connections.
	ModeCDDBP ServerMode = iota
	// ModeHTTP answers one HTTP/1.0 request per connection.
	ModeHTTP
)

// Request is one HTTP request seen by the fake server.
type Request struct {
	Method  string
	Target  string
	Headers map[string]string
	Body    string
}

type handler struct {
	prefix string
	lines  []string
}

// Server is a scripted CDDB server on a loopback listener. Responses are
// registered per command prefix; every command and submitted record is
// recorded for assertions.
type Server struct {
	t    testing.TB
	ln   net.Listener
	mode ServerMode
	wg   sync.WaitGroup

	mu          sync.Mutex
	banner      string
	handlers    []handler
	submitAck   string
	submitReply string
	httpStatus  string
	commands    []string
	payloads    []string
	requests    []Request
	connections int
	silent      bool
	open        map[net.Conn]struct{}
}

// NewServer starts a fake server that is closed when the test ends. Hello
// and proto are answered with success by default.
func NewServer(t testing.TB, mode ServerMode) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{
		t:           t,
		ln:          ln,
		mode:        mode,
		banner:      "201 fake CDDBP server v1.0 ready at Mon Jan 01 00:00:00 2024",
		submitAck:   "320 OK, input CDDB data.",
		submitReply: "200 CDDB entry accepted",
		httpStatus:  "HTTP/1.0 200 OK",
		open:        make(map[net.Conn]struct{}),
	}
	s.Handle("cddb hello", "200 Hello and welcome tester@example.org running test 1.0.")
	s.Handle("proto", "201 OK, CDDB protocol level now: 6")
	s.Handle("quit", "230 fake Closing connection.  Goodbye.")

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Addr returns the listener host and port.
func (s *Server) Addr() (string, int) {
	addr := s.ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

// Mode returns the protocol the server speaks.
func (s *Server) Mode() ServerMode {
	return s.mode
}

// SetBanner replaces the CDDBP sign-on line.
func (s *Server) SetBanner(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = line
}

// SetHTTPStatus replaces the HTTP status line sent before every response.
func (s *Server) SetHTTPStatus(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.httpStatus = line
}

// SetSilent makes the server accept connections and read commands without
// ever answering.
func (s *Server) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = silent
}

// Handle registers the response lines for commands starting with prefix.
// Later registrations take precedence. Multi-line bodies must include the
// terminating ".".
func (s *Server) Handle(prefix string, lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler{prefix: prefix, lines: lines})
}

// HandleSubmit sets the reply to "cddb write" (CDDBP only) and the reply
// after the record has been received.
func (s *Server) HandleSubmit(ack, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitAck = ack
	s.submitReply = reply
}

// Commands returns every command received, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Payloads returns every submitted record, in order.
func (s *Server) Payloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

// Requests returns every HTTP request, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Connections returns the number of accepted connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// Close stops the listener, drops open connections and waits for their
// goroutines to finish.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for conn := range s.open {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.connections++
		s.open[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.open, conn)
				s.mu.Unlock()
				_ = conn.Close()
			}()
			if s.mode == ModeHTTP {
				s.serveHTTP(conn)
			} else {
				s.serveCDDBP(conn)
			}
		}()
	}
}

func (s *Server) lookup(cmd string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.handlers) - 1; i >= 0; i-- {
		if strings.HasPrefix(cmd, s.handlers[i].prefix) {
			return s.handlers[i].lines, true
		}
	}
	return nil, false
}

func (s *Server) record(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
}

func (s *Server) isSilent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.silent
}

func writeLines(w io.Writer, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (s *Server) serveCDDBP(conn net.Conn) {
	r := bufio.NewReader(conn)
	s.mu.Lock()
	banner, silent := s.banner, s.silent
	s.mu.Unlock()
	if !silent {
		if err := writeLines(conn, []string{banner}); err != nil {
			return
		}
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		s.record(cmd)
		if s.isSilent() {
			continue
		}

		if strings.HasPrefix(cmd, "cddb write") {
			s.mu.Lock()
			ack, reply := s.submitAck, s.submitReply
			s.mu.Unlock()
			if err := writeLines(conn, []string{ack}); err != nil {
				return
			}
			if !strings.HasPrefix(ack, "320") {
				continue
			}
			payload, err := readUntilDot(r)
			if err != nil {
				return
			}
			s.mu.Lock()
			s.payloads = append(s.payloads, payload)
			s.mu.Unlock()
			if err := writeLines(conn, []string{reply}); err != nil {
				return
			}
			continue
		}

		lines, ok := s.lookup(cmd)
		if !ok {
			lines = []string{"500 Unrecognized command."}
		}
		if err := writeLines(conn, lines); err != nil {
			return
		}
		if cmd == "quit" {
			return
		}
	}
}

func readUntilDot(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		if strings.TrimRight(line, "\r\n") == "." {
			return b.String(), nil
		}
		b.WriteString(line)
	}
}

func (s *Server) serveHTTP(conn net.Conn) {
	r := bufio.NewReader(conn)
	requestLine, err := r.ReadString('\n')
	if err != nil {
		return
	}
	fields := strings.Fields(requestLine)
	if len(fields) != 3 {
		_ = writeLines(conn, []string{"HTTP/1.0 400 Bad Request", ""})
		return
	}
	req := Request{Method: fields[0], Target: fields[1], Headers: make(map[string]string)}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, _ := strings.Cut(line, ":")
		req.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	var lines []string
	switch req.Method {
	case "POST":
		size, _ := strconv.Atoi(req.Headers["content-length"])
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return
		}
		req.Body = string(body)
		cmd := "cddb write " + req.Headers["category"] + " " + req.Headers["discid"]
		s.record(cmd)
		s.mu.Lock()
		s.payloads = append(s.payloads, req.Body)
		lines = []string{s.submitReply}
		s.mu.Unlock()
	default:
		cmd := ""
		if u, err := url.Parse(req.Target); err == nil {
			cmd = u.Query().Get("cmd")
		}
		s.record(cmd)
		var ok bool
		if lines, ok = s.lookup(cmd); !ok {
			lines = []string{"500 Unrecognized command."}
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	status, silent := s.httpStatus, s.silent
	s.mu.Unlock()
	if silent {
		_, _ = io.Copy(io.Discard, r)
		return
	}

	response := []string{status, "Content-Type: text/plain", ""}
	if strings.Contains(status, " 200 ") || strings.HasSuffix(status, " 200") {
		response = append(response, lines...)
	}
	_ = writeLines(conn, response)
}
