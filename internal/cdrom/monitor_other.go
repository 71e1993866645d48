//go:build !linux

package cdrom

import (
	"context"
	"log/slog"
)

// Monitor is a stub outside Linux; Start always fails.
type Monitor struct{}

func NewMonitor(device string, logger *slog.Logger, handler Handler) *Monitor {
	return &Monitor{}
}

func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return ErrUnsupported
}

func (m *Monitor) Stop() {}

func (m *Monitor) Running() bool { return false }
