package config

import (
	"os"
	"path/filepath"
)

// AppName identifies this webapp to the hosting platform.
const AppName = "xmproxy-webapp"

// Default locations on the appliance image. The hosting platform overrides
// them through the APP_* environment variables when sandboxing apps.
const (
	defaultDataDir   = "/data/app-data/" + AppName
	defaultConfigDir = "/data/app-config/" + AppName
	defaultLogFile   = "/var/log/app/" + AppName + ".log"

	relayConfigDir       = "/data/app-config/jsonrpc-tcp-srv"
	defaultRestartScript = "/app/jsonrpc-tcp-srv/scripts/restart-xmproxy.sh"
)

// AppPaths contains all filesystem locations used by the webapp.
type AppPaths struct {
	DataDir    string // Webapp mutable data (backups live below here)
	ConfigDir  string // Webapp configuration (config.json)
	LogFile    string // Webapp log file
	LoginFile  string // Relay credentials file (xmpp-login.txt)
	PresetsDir string // Named configuration presets
	BackupDir  string // Timestamped backups of the login file

	RestartScript string // Optional relay restart script
}

// GetAppPaths returns the path layout, honouring the APP_DATA_DIR,
// APP_CONFIG_DIR, and APP_LOG_FILE environment overrides.
func GetAppPaths() AppPaths {
	dataDir := envOr("APP_DATA_DIR", defaultDataDir)
	configDir := envOr("APP_CONFIG_DIR", defaultConfigDir)
	logFile := envOr("APP_LOG_FILE", defaultLogFile)

	return AppPaths{
		DataDir:       dataDir,
		ConfigDir:     configDir,
		LogFile:       logFile,
		LoginFile:     filepath.Join(relayConfigDir, "xmpp-login.txt"),
		PresetsDir:    filepath.Join(relayConfigDir, "presets"),
		BackupDir:     filepath.Join(dataDir, "backups"),
		RestartScript: defaultRestartScript,
	}
}

// EnsureAppDirs creates the webapp's directory structure if it does not exist.
func EnsureAppDirs(paths AppPaths) error {
	dirs := []string{
		paths.DataDir,
		paths.ConfigDir,
		paths.PresetsDir,
		paths.BackupDir,
		filepath.Dir(paths.LogFile),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
