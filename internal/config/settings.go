package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds the webapp's own configuration, loaded from config.json.
// Everything here has a working default; the file only needs to exist when
// a deployment deviates from the appliance image.
type Settings struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	StatusPollInterval int    `json:"status_poll_interval"` // milliseconds
	RestartTimeout     int    `json:"restart_timeout"`      // seconds
	MaxBackups         int    `json:"max_backups"`

	RelayHost    string `json:"relay_host"`
	RelayPort    int    `json:"relay_port"`
	RelayTimeout int    `json:"relay_timeout"` // seconds

	// Direct process management of the relay. When RelayBinary is set the
	// restart orchestrator stops and starts the process itself instead of
	// relying on an external supervisor.
	RelayBinary  string `json:"relay_binary"`
	RelayPIDFile string `json:"relay_pid_file"`
	RelayLogFile string `json:"relay_log_file"`
}

// DefaultSettings mirrors the appliance defaults shipped with the webapp.
func DefaultSettings() Settings {
	return Settings{
		Host:               "0.0.0.0",
		Port:               8006,
		StatusPollInterval: 5000,
		RestartTimeout:     30,
		MaxBackups:         5,
		RelayHost:          "127.0.0.1",
		RelayPort:          40005,
		RelayTimeout:       5,
	}
}

// LoadSettings reads config.json from the webapp config directory, falling
// back to etc/config.json.default under appRoot and finally to the built-in
// defaults. A malformed file is treated the same as a missing one: the
// webapp must come up even when its own configuration is broken.
func LoadSettings(paths AppPaths, appRoot string) Settings {
	settings := DefaultSettings()

	candidates := []string{
		filepath.Join(paths.ConfigDir, "config.json"),
	}
	if appRoot != "" {
		candidates = append(candidates, filepath.Join(appRoot, "etc", "config.json.default"))
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &settings); err != nil {
			settings = DefaultSettings()
			continue
		}
		break
	}

	return settings
}

// PollInterval returns the status poll cadence as a duration.
func (s Settings) PollInterval() time.Duration {
	if s.StatusPollInterval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.StatusPollInterval) * time.Millisecond
}

// RelayCallTimeout returns the control-port round-trip budget.
func (s Settings) RelayCallTimeout() time.Duration {
	if s.RelayTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.RelayTimeout) * time.Second
}

// ScriptTimeout returns the restart-script execution budget.
func (s Settings) ScriptTimeout() time.Duration {
	if s.RestartTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.RestartTimeout) * time.Second
}
