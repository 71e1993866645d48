package cddb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cddb/internal/cddbcache"
	"cddb/internal/charset"
	"cddb/internal/disc"
	"cddb/internal/logging"
	"cddb/internal/transport"
)

// ErrInvalidEmail is returned by SetEmail and NewSession.
var ErrInvalidEmail = errors.New("email address must have the form user@host")

// Session is one client handle: configuration, at most one open
// connection, the local cache and the result sets of the last query and
// sites commands. A Session is not safe for concurrent use.
type Session struct {
	opts   Options
	id     string
	logger *slog.Logger
	cache  *cddbcache.Cache
	codec  *charset.Codec
	user   string
	host   string

	conn  *transport.Conn
	wire  wire
	level int
	errno Code

	matches  []*disc.Disc
	matchIdx int
	sites    []*Site
	siteIdx  int
}

// NewSession validates opts and prepares a disconnected session. The cache
// is opened when the cache mode is not off.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	opts.applyDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	id := uuid.NewString()
	logger = logging.NewComponentLogger(logger, "cddb").With(logging.String(logging.FieldSessionID, id))

	codec, err := charset.New(opts.Charset)
	if err != nil {
		return nil, err
	}

	s := &Session{
		opts:   opts,
		id:     id,
		logger: logger,
		codec:  codec,
		level:  1,
	}
	if err := s.SetEmail(opts.Email); err != nil {
		return nil, err
	}

	if opts.CacheMode.Enabled() {
		if opts.CacheDir == "" {
			return nil, errors.New("cache directory is required when the cache is enabled")
		}
		cache, err := cddbcache.New(ctx, cddbcache.Options{
			Dir:         opts.CacheDir,
			Index:       opts.CacheIndex,
			LockTimeout: opts.Timeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}

	logger.Debug("session created",
		logging.String("server", opts.Server),
		logging.Bool("http", opts.HTTP),
		logging.String("cache_mode", opts.CacheMode.String()))
	return s, nil
}

// ID returns the session identifier attached to every log record.
func (s *Session) ID() string {
	return s.id
}

// Errno returns the code of the last operation.
func (s *Session) Errno() Code {
	return s.errno
}

// ProtocolLevel returns the level negotiated during the last handshake, 1
// when none was negotiated.
func (s *Session) ProtocolLevel() int {
	return s.level
}

// Connected reports whether a connection is open.
func (s *Session) Connected() bool {
	return s.conn != nil
}

// CacheMode returns the cache policy.
func (s *Session) CacheMode() cddbcache.Mode {
	return s.opts.CacheMode
}

// Cache returns the session's cache, nil when the cache is off.
func (s *Session) Cache() *cddbcache.Cache {
	return s.cache
}

// SetEmail sets the user and host sent with HELLO.
func (s *Session) SetEmail(email string) error {
	user, host, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || user == "" || host == "" || strings.ContainsAny(email, " \t") {
		s.errno = CodeDataMissing
		return fmt.Errorf("%q: %w", email, ErrInvalidEmail)
	}
	s.user, s.host = user, host
	s.errno = CodeOK
	return nil
}

// Connect opens the connection if none is open and, for CDDBP, performs
// the handshake. Cache-only sessions never connect.
func (s *Session) Connect(ctx context.Context) error {
	if s.opts.CacheMode == cddbcache.ModeOnly {
		return s.fail("connect", CodeNotConnected, errors.New("session is in cache-only mode"))
	}
	return s.connect(ctx)
}

func (s *Session) connect(ctx context.Context) error {
	if s.opts.CacheMode == cddbcache.ModeOnly {
		panic("cddb: network access attempted in cache-only mode")
	}
	if s.conn != nil {
		s.errno = CodeOK
		return nil
	}

	host, port := s.opts.Server, s.opts.CDDBPPort
	if s.opts.HTTP {
		port = s.opts.HTTPPort
		if s.opts.Proxy.Server != "" {
			host, port = s.opts.Proxy.Server, s.opts.Proxy.Port
		}
	}

	conn, err := transport.Dial(ctx, host, port, s.opts.Timeout, s.opts.BufferSize)
	if err != nil {
		return s.fail("connect", classify(err, CodeConnect), err)
	}
	s.conn = conn
	s.logger.Debug("connected",
		logging.String("remote", conn.RemoteAddr().String()),
		logging.Bool("http", s.opts.HTTP))

	if s.opts.HTTP {
		s.wire = newHTTPWire(conn, &s.opts, s.user, s.host)
		s.errno = CodeOK
		return nil
	}

	s.wire = &cddbpWire{conn: conn}
	if err := s.handshake(); err != nil {
		s.dropConnection()
		return err
	}
	s.errno = CodeOK
	return nil
}

// handshake reads the banner, then sends HELLO and PROTO. Codes outside
// the documented failure set are tolerated.
func (s *Session) handshake() error {
	const op = "connect"

	code, msg, err := s.readResponse(op)
	if err != nil {
		return err
	}
	switch code {
	case 200, 201:
	case 432, 433, 434:
		return s.fail(op, CodePermissionDenied, errors.New(msg))
	default:
		s.logger.Debug("unexpected banner", logging.Int(logging.FieldResponseCode, code))
	}

	if err := s.sendCommand(op, cmdHello, s.user, s.host, s.opts.ClientName, s.opts.ClientVersion); err != nil {
		return err
	}
	if code, msg, err = s.readResponse(op); err != nil {
		return err
	}
	switch code {
	case 200, 402:
	case 431:
		return s.fail(op, CodePermissionDenied, errors.New(msg))
	default:
		s.logger.Debug("unexpected hello reply", logging.Int(logging.FieldResponseCode, code))
	}

	if err := s.sendCommand(op, cmdProto, ProtocolLevel); err != nil {
		return err
	}
	if code, _, err = s.readResponse(op); err != nil {
		return err
	}
	switch code {
	case 200, 201, 502:
		s.level = ProtocolLevel
	case 501:
		s.logger.Debug("protocol level rejected", logging.Int("level", ProtocolLevel))
	default:
		s.logger.Debug("unexpected proto reply", logging.Int(logging.FieldResponseCode, code))
	}
	return nil
}

// Disconnect sends QUIT on a CDDBP connection and closes it. It is a no-op
// when no connection is open. The last error code is left untouched.
func (s *Session) Disconnect() {
	if s.conn == nil {
		return
	}
	if s.wire.persistent() {
		if err := s.wire.send(cmdQuit.format()); err == nil {
			_, _ = s.wire.readLine()
		}
	}
	s.dropConnection()
}

// dropConnection closes the socket without QUIT.
func (s *Session) dropConnection() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("close connection", logging.Error(err))
	}
	s.conn = nil
	s.wire = nil
	s.logger.Debug("disconnected")
}

// finish closes HTTP connections after each command.
func (s *Session) finish() {
	if s.wire != nil && !s.wire.persistent() {
		s.dropConnection()
	}
}

// Close disconnects and releases the cache.
func (s *Session) Close() error {
	s.Disconnect()
	if s.cache == nil {
		return nil
	}
	err := s.cache.Close()
	s.cache = nil
	return err
}

func (s *Session) fail(op string, code Code, err error) error {
	s.errno = code
	return &Error{Code: code, Op: op, Err: err}
}

// failDisconnect drops the connection and reports code, which survives
// the disconnect.
func (s *Session) failDisconnect(op string, code Code, err error) error {
	s.dropConnection()
	return s.fail(op, code, err)
}
