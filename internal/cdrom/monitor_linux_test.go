//go:build linux

package cdrom

import (
	"context"
	"errors"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestMonitorNilSafety(t *testing.T) {
	t.Run("nil monitor is not running", func(t *testing.T) {
		var m *Monitor
		if m.Running() {
			t.Error("expected Running() to return false for nil monitor")
		}
	})

	t.Run("start and stop on nil monitor are safe", func(t *testing.T) {
		var m *Monitor
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start on nil monitor should return nil, got: %v", err)
		}
		m.Stop()
	})

	t.Run("double stop on unstarted monitor is safe", func(t *testing.T) {
		m := NewMonitor("/dev/sr0", nil, nil)
		m.Stop()
		m.Stop()
		if m.Running() {
			t.Error("expected Running() to return false after Stop")
		}
	})
}

func TestBuildMatcher(t *testing.T) {
	matcher := buildMatcher()
	media := map[string]string{
		"SUBSYSTEM":      "block",
		"ID_CDROM":       "1",
		"ID_CDROM_MEDIA": "1",
	}

	for _, action := range []netlink.KObjAction{netlink.CHANGE, netlink.ADD} {
		if !matcher.Evaluate(netlink.UEvent{Action: action, Env: media}) {
			t.Errorf("expected matcher to accept %s", action)
		}
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.REMOVE, Env: media}) {
		t.Error("expected matcher to reject REMOVE action")
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{
		"SUBSYSTEM": "block",
		"ID_CDROM":  "1",
	}}) {
		t.Error("expected matcher to reject event without media")
	}
}

func TestExtractDeviceName(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"devname", map[string]string{"DEVNAME": "/dev/sr1"}, "/dev/sr1"},
		{"bare devname", map[string]string{"DEVNAME": "sr0"}, "/dev/sr0"},
		{"devpath", map[string]string{"DEVPATH": "/devices/pci0000:00/ata2/host1/block/sr0"}, "/dev/sr0"},
		{"trailing slash", map[string]string{"DEVPATH": "/devices/block/"}, ""},
		{"empty", map[string]string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDeviceName(netlink.UEvent{Env: tt.env}); got != tt.want {
				t.Errorf("extractDeviceName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleEvent(t *testing.T) {
	event := func(env map[string]string) netlink.UEvent {
		return netlink.UEvent{Action: netlink.CHANGE, Env: env}
	}

	t.Run("calls handler for watched device", func(t *testing.T) {
		var got string
		m := NewMonitor("/dev/sr0", nil, func(ctx context.Context, device string) error {
			got = device
			return nil
		})
		m.handleEvent(context.Background(), event(map[string]string{"DEVNAME": "/dev/sr0"}))
		if got != "/dev/sr0" {
			t.Errorf("handler device = %q, want /dev/sr0", got)
		}
	})

	t.Run("ignores other devices", func(t *testing.T) {
		called := false
		m := NewMonitor("/dev/sr0", nil, func(context.Context, string) error {
			called = true
			return nil
		})
		m.handleEvent(context.Background(), event(map[string]string{"DEVNAME": "/dev/sr1"}))
		if called {
			t.Error("handler should not be called for another device")
		}
	})

	t.Run("any device when unset", func(t *testing.T) {
		called := false
		m := NewMonitor("", nil, func(context.Context, string) error {
			called = true
			return nil
		})
		m.handleEvent(context.Background(), event(map[string]string{"DEVNAME": "/dev/sr3"}))
		if !called {
			t.Error("handler should be called when no device is configured")
		}
	})

	t.Run("skips data-only discs", func(t *testing.T) {
		called := false
		m := NewMonitor("/dev/sr0", nil, func(context.Context, string) error {
			called = true
			return nil
		})
		m.handleEvent(context.Background(), event(map[string]string{
			"DEVNAME":                          "/dev/sr0",
			"ID_CDROM_MEDIA_TRACK_COUNT_AUDIO": "0",
		}))
		if called {
			t.Error("handler should not be called for a disc without audio tracks")
		}
	})

	t.Run("handler error is not fatal", func(t *testing.T) {
		m := NewMonitor("/dev/sr0", nil, func(context.Context, string) error {
			return errors.New("boom")
		})
		m.handleEvent(context.Background(), event(map[string]string{"DEVNAME": "/dev/sr0"}))
	})
}
