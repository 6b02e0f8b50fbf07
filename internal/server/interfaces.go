package server

import (
	"github.com/xmproxy/webapp/internal/restart"
	"github.com/xmproxy/webapp/internal/status"
)

// ControlClient is the slice of the relay control-port client the HTTP
// handlers need.
type ControlClient interface {
	IsReachable() bool
	SetOnlineStatus(status string) error
}

// StatusProvider exposes the monitor's last observation and an out-of-band
// refresh.
type StatusProvider interface {
	Last() status.Status
	Force() status.Status
}

// Restarter runs one restart attempt to a terminal result.
type Restarter interface {
	Restart() restart.Result
}
