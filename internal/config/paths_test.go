package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetAppPathsDefaults(t *testing.T) {
	os.Unsetenv("APP_DATA_DIR")
	os.Unsetenv("APP_CONFIG_DIR")
	os.Unsetenv("APP_LOG_FILE")

	paths := GetAppPaths()

	if !strings.Contains(paths.DataDir, AppName) {
		t.Errorf("DataDir %s does not contain app name", paths.DataDir)
	}
	if !strings.HasSuffix(paths.LoginFile, "xmpp-login.txt") {
		t.Errorf("LoginFile path incorrect: %s", paths.LoginFile)
	}
	if !strings.HasSuffix(paths.BackupDir, "backups") {
		t.Errorf("BackupDir path incorrect: %s", paths.BackupDir)
	}
	if filepath.Dir(paths.PresetsDir) == paths.DataDir {
		t.Errorf("PresetsDir should live under the relay config dir, got %s", paths.PresetsDir)
	}
}

func TestGetAppPathsEnvOverrides(t *testing.T) {
	t.Setenv("APP_DATA_DIR", "/tmp/xmproxy-data")
	t.Setenv("APP_CONFIG_DIR", "/tmp/xmproxy-config")
	t.Setenv("APP_LOG_FILE", "/tmp/xmproxy.log")

	paths := GetAppPaths()

	if paths.DataDir != "/tmp/xmproxy-data" {
		t.Errorf("DataDir = %s; want /tmp/xmproxy-data", paths.DataDir)
	}
	if paths.ConfigDir != "/tmp/xmproxy-config" {
		t.Errorf("ConfigDir = %s; want /tmp/xmproxy-config", paths.ConfigDir)
	}
	if paths.LogFile != "/tmp/xmproxy.log" {
		t.Errorf("LogFile = %s; want /tmp/xmproxy.log", paths.LogFile)
	}
	if paths.BackupDir != filepath.Join("/tmp/xmproxy-data", "backups") {
		t.Errorf("BackupDir = %s; want it under the data dir", paths.BackupDir)
	}
}

func TestEnsureAppDirs(t *testing.T) {
	base := t.TempDir()
	paths := AppPaths{
		DataDir:    filepath.Join(base, "data"),
		ConfigDir:  filepath.Join(base, "config"),
		LogFile:    filepath.Join(base, "log", "app.log"),
		PresetsDir: filepath.Join(base, "presets"),
		BackupDir:  filepath.Join(base, "data", "backups"),
	}

	if err := EnsureAppDirs(paths); err != nil {
		t.Fatalf("EnsureAppDirs: %v", err)
	}

	for _, dir := range []string{paths.DataDir, paths.ConfigDir, paths.PresetsDir, paths.BackupDir, filepath.Dir(paths.LogFile)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("stat %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
