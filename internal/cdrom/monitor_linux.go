//go:build linux

package cdrom

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"cddb/internal/logging"
)

// Monitor listens for udev netlink events and calls its handler when an
// audio disc shows up in the watched drive.
type Monitor struct {
	logger  *slog.Logger
	handler Handler
	device  string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor returns a monitor for device. An empty device accepts media
// events from any optical drive.
func NewMonitor(device string, logger *slog.Logger, handler Handler) *Monitor {
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "cdrom-monitor"),
		handler: handler,
		device:  strings.TrimSpace(device),
	}
}

// Start connects to the kernel uevent socket and begins dispatching events.
// A connect failure is returned; calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the process may open NETLINK_KOBJECT_UEVENT sockets"),
			logging.String(logging.FieldImpact, "discs will not be detected automatically"),
		)
		return err
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("cdrom monitor started",
		logging.String(logging.FieldEventType, "netlink_monitor_started"),
		logging.String("device", m.deviceLabel()),
	)
	return nil
}

// Stop closes the uevent socket. It is safe on a nil or stopped monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("cdrom monitor stopped",
		logging.String(logging.FieldEventType, "netlink_monitor_stopped"),
	)
}

// Running reports whether the monitor is listening.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			m.Stop()
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "disc detection may be affected"),
			)
		}
	}
}

// buildMatcher accepts media change events of optical block devices:
// SUBSYSTEM=block, ID_CDROM=1, ID_CDROM_MEDIA=1, ACTION=change|add.
func buildMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if m.device != "" && devname != m.device {
		m.logger.Debug("ignoring event for other device",
			logging.String("device", devname),
			logging.String("watched_device", m.device),
		)
		return
	}
	if uevent.Env["ID_CDROM_MEDIA_TRACK_COUNT_AUDIO"] == "0" {
		m.logger.Debug("ignoring disc without audio tracks", logging.String("device", devname))
		return
	}

	m.logger.Info("disc media detected",
		logging.String(logging.FieldEventType, "netlink_disc_detected"),
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)),
	)

	if m.handler == nil {
		return
	}
	if err := m.handler(ctx, devname); err != nil {
		logging.WarnWithContext(m.logger, "disc handler failed", "netlink_handler_failed",
			logging.Error(err),
			logging.String("device", devname),
			logging.String(logging.FieldImpact, "disc not looked up"),
		)
	}
}

func (m *Monitor) deviceLabel() string {
	if m.device == "" {
		return "any"
	}
	return m.device
}

// extractDeviceName gets the device path from a uevent, falling back to the
// last DEVPATH element (/devices/.../block/sr0).
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			return "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return "/dev/" + last
}
