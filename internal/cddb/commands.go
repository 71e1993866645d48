package cddb

import (
	"fmt"
	"strconv"
	"strings"

	"cddb/internal/logging"
	"cddb/internal/xmcd"
)

type command int

const (
	cmdHello command = iota
	cmdQuit
	cmdRead
	cmdQuery
	cmdWrite
	cmdProto
	cmdSites
)

var commandFormats = [...]string{
	cmdHello: "cddb hello %s %s %s %s",
	cmdQuit:  "quit",
	cmdRead:  "cddb read %s %08x",
	cmdQuery: "cddb query %08x %d %s %d",
	cmdWrite: "cddb write %s %08x",
	cmdProto: "proto %d",
	cmdSites: "sites",
}

func (c command) format(args ...any) string {
	if len(args) == 0 {
		return commandFormats[c]
	}
	return fmt.Sprintf(commandFormats[c], args...)
}

// sendCommand formats cmd and hands it to the wire. A transport failure
// drops the connection so the next operation reconnects.
func (s *Session) sendCommand(op string, cmd command, args ...any) error {
	if s.wire == nil {
		return s.fail(op, CodeNotConnected, nil)
	}
	line := cmd.format(args...)
	s.logger.Debug("cddb command", logging.String(logging.FieldCommand, line))
	if err := s.wire.send(line); err != nil {
		return s.failDisconnect(op, classify(err, CodeNotConnected), err)
	}
	return nil
}

// readResponse reads one "<code> <message>" line. The message is decoded
// from the server charset.
func (s *Session) readResponse(op string) (int, string, error) {
	if s.wire == nil {
		return -1, "", s.fail(op, CodeNotConnected, nil)
	}
	line, err := s.wire.readLine()
	if err != nil {
		return -1, "", s.failDisconnect(op, classify(err, CodeUnexpectedEOF), err)
	}
	line = s.codec.Decode(line)

	codeText, msg, found := strings.Cut(line, " ")
	code, convErr := strconv.Atoi(codeText)
	if !found || convErr != nil || len(codeText) != 3 {
		return -1, "", s.fail(op, CodeInvalidResponse, fmt.Errorf("response line %q", line))
	}
	s.logger.Debug("cddb response",
		logging.Int(logging.FieldResponseCode, code),
		logging.String("message", msg))
	return code, msg, nil
}

// readList collects body lines up to the "." terminator or end of stream.
func (s *Session) readList(op string) ([]string, error) {
	var lines []string
	for {
		line, err := s.wire.readLine()
		if err != nil {
			if classify(err, CodeUnknown) == CodeUnexpectedEOF {
				return lines, nil
			}
			return nil, s.failDisconnect(op, classify(err, CodeUnexpectedEOF), err)
		}
		if line == xmcd.Terminator {
			return lines, nil
		}
		lines = append(lines, s.codec.Decode(line))
	}
}
