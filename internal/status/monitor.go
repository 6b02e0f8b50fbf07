// Package status tracks the relay's observed state: a single writer polls
// the control port on a fixed cadence and any number of readers take the
// last snapshot without triggering network traffic.
package status

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/xmproxy/webapp/internal/eventbus"
)

// Status is the relay state as seen from the webapp.
type Status string

const (
	// StatusUnknown is the pre-first-poll default.
	StatusUnknown Status = "unknown"
	// StatusOnline and StatusOffline are reported by the relay itself.
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	// StatusDisconnected means the control port is unreachable.
	StatusDisconnected Status = "disconnected"
	// StatusError means the port is reachable but the exchange failed.
	StatusError Status = "error"
)

// DefaultPollInterval is the cadence of the background poll loop.
const DefaultPollInterval = 5 * time.Second

// ControlClient is the slice of the control-port client the monitor needs.
type ControlClient interface {
	IsReachable() bool
	OnlineStatus() (string, error)
}

// Monitor owns the last-observed relay status. Poll and Force are the only
// writers; both funnel through the same update path, and the daemon runs
// exactly one Run loop, so readers always see a consistent past observation.
type Monitor struct {
	control  ControlClient
	bus      *eventbus.Bus
	interval time.Duration

	last atomic.Value // Status
}

// NewMonitor builds a monitor. interval <= 0 selects DefaultPollInterval;
// bus may be nil when nobody wants transition events.
func NewMonitor(control ControlClient, bus *eventbus.Bus, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	m := &Monitor{
		control:  control,
		bus:      bus,
		interval: interval,
	}
	m.last.Store(StatusUnknown)
	return m
}

// Last returns the most recent observation without touching the network.
func (m *Monitor) Last() Status {
	return m.last.Load().(Status)
}

// Poll observes the relay once and records the result. Every failure mode
// maps to a Status value; Poll never fails.
func (m *Monitor) Poll() Status {
	current := m.observe()

	previous := m.last.Swap(current).(Status)
	if previous != current {
		log.Printf("[StatusMonitor] relay status %s -> %s", previous, current)
		m.bus.Publish(eventbus.Envelope{
			Topic:  eventbus.TopicStatusChanged,
			Source: eventbus.SourceStatusMonitor,
			Payload: eventbus.StatusEvent{
				Previous: string(previous),
				Current:  string(current),
			},
		})
	}
	return current
}

// Force is an immediate out-of-band poll, used right after a save or
// restart to shorten the time clients see a stale status.
func (m *Monitor) Force() Status {
	return m.Poll()
}

func (m *Monitor) observe() Status {
	if !m.control.IsReachable() {
		return StatusDisconnected
	}

	reported, err := m.control.OnlineStatus()
	if err != nil {
		return StatusError
	}

	switch Status(reported) {
	case StatusOnline, StatusOffline:
		return Status(reported)
	default:
		return StatusUnknown
	}
}

// Run polls on the configured cadence until ctx is cancelled. It is the
// single scheduled writer; everything else reads Last or calls Force for a
// one-off refresh.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}
