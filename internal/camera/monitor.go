package camera

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"github.com/access-system/face-recognition-enrollment/internal/logging"
)

// Monitor watches udev for the configured video device being removed.
type Monitor struct {
	device   string
	logger   *slog.Logger
	onRemove func(device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor returns nil when device is empty.
func NewMonitor(device string, logger *slog.Logger, onRemove func(device string)) *Monitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &Monitor{
		device:   device,
		logger:   logging.NewComponentLogger(logger, "camera-monitor"),
		onRemove: onRemove,
	}
}

// Start connects to the udev netlink socket. Failing to connect is logged and
// leaves the monitor inactive.
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
		m.logger.Warn("failed to connect to netlink socket; camera removal will not be detected",
			logging.Error(err),
			logging.EventType("netlink_connect_failed"),
			logging.Hint("ensure the daemon may open netlink sockets"),
			logging.Impact("unplugging the camera stalls capture until preview is restarted"),
		)
		return nil
	}
	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.loop(ctx, conn, quit)

	m.logger.Info("camera monitor started",
		logging.EventType("camera_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop disconnects from udev. It is safe on a nil or stopped monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

// Running reports whether the monitor is connected.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.matcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case event := <-queue:
			m.handle(event)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.EventType("netlink_monitor_error"),
				logging.Hint("check kernel netlink subsystem"),
				logging.Impact("camera removal may go unnoticed"),
			)
		}
	}
}

// matcher accepts removal of any video4linux node.
func (m *Monitor) matcher() netlink.Matcher {
	action := "remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "video4linux"},
	})
	return rules
}

func (m *Monitor) handle(event netlink.UEvent) {
	device := deviceName(event)
	if device != m.device {
		m.logger.Debug("ignoring event for other device",
			logging.String("device", device),
			logging.String("action", string(event.Action)),
		)
		return
	}
	m.logger.Warn("camera removed",
		logging.EventType("camera_removed"),
		logging.String("device", device),
		logging.Hint("reconnect the camera and restart preview"),
		logging.Impact("capture stops and the pipeline shuts down"),
	)
	if m.onRemove != nil {
		m.onRemove(device)
	}
}

func deviceName(event netlink.UEvent) string {
	if name := event.Env["DEVNAME"]; name != "" {
		if !strings.HasPrefix(name, "/") {
			return "/dev/" + name
		}
		return name
	}
	devpath := event.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
