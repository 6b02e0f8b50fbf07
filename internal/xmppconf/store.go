package xmppconf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xmproxy/webapp/internal/sanitize"
)

const (
	backupPrefix = "xmpp-login_"
	backupSuffix = ".txt"
	presetSuffix = ".txt"

	// DefaultMaxBackups bounds the backup ring when no limit is configured.
	DefaultMaxBackups = 5
)

// ErrPresetNotFound indicates the named preset does not exist.
var ErrPresetNotFound = errors.New("preset not found")

// ErrBackupNotFound indicates the named backup does not exist.
var ErrBackupNotFound = errors.New("backup not found")

// BackupInfo describes one backup of the live login file.
type BackupInfo struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Store manages xmpp-login.txt, its named presets, and a bounded ring of
// timestamped backups. Mutating operations are serialized by an internal
// mutex so overlapping saves cannot interleave their backup-then-overwrite
// steps.
type Store struct {
	loginFile  string
	presetsDir string
	backupDir  string
	maxBackups int

	mu sync.Mutex

	// now is overridable so retention tests can control backup names.
	now func() time.Time
}

// NewStore builds a store over the given paths. maxBackups <= 0 selects
// DefaultMaxBackups.
func NewStore(loginFile, presetsDir, backupDir string, maxBackups int) *Store {
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}
	return &Store{
		loginFile:  loginFile,
		presetsDir: presetsDir,
		backupDir:  backupDir,
		maxBackups: maxBackups,
		now:        time.Now,
	}
}

// LoginFile returns the path of the live configuration file.
func (s *Store) LoginFile() string {
	return s.loginFile
}

// Load parses the live configuration. A missing file yields an empty record.
func (s *Store) Load() Record {
	return ParseFile(s.loginFile)
}

// Save writes the record to the live file. With backup enabled the current
// file is snapshotted first, so the newest backup always reflects the
// pre-save state; a failed snapshot aborts the save so the previous state
// stays recoverable. The first-ever save has nothing to back up.
func (s *Store) Save(record Record, backup bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if backup {
		if _, err := os.Stat(s.loginFile); err == nil {
			if err := s.createBackupLocked(); err != nil {
				return fmt.Errorf("backup before save: %w", err)
			}
		}
	}

	return writeFileAtomic(s.loginFile, record.Encode())
}

// createBackupLocked copies the live file into the backup directory under a
// second-resolution timestamp name, then trims the ring to maxBackups.
// Cleanup is deliberately not transactional with creation: a crash in
// between leaves at most one extra backup, which the next save trims.
func (s *Store) createBackupLocked() error {
	data, err := os.ReadFile(s.loginFile)
	if err != nil {
		return fmt.Errorf("read live config: %w", err)
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := backupPrefix + s.now().Format("20060102_150405") + backupSuffix
	path := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write backup %s: %w", name, err)
	}
	log.Printf("[ConfigStore] created backup %s", name)

	s.cleanupBackupsLocked()
	return nil
}

func (s *Store) cleanupBackupsLocked() {
	names, err := s.backupNames()
	if err != nil {
		log.Printf("[ConfigStore] backup cleanup failed: %v", err)
		return
	}

	// Backup names embed the creation time, so lexicographic order is
	// creation order: delete from the front until the cap holds.
	sort.Strings(names)
	for len(names) > s.maxBackups {
		oldest := names[0]
		names = names[1:]
		if err := os.Remove(filepath.Join(s.backupDir, oldest)); err != nil {
			log.Printf("[ConfigStore] failed to remove old backup %s: %v", oldest, err)
			continue
		}
		log.Printf("[ConfigStore] removed old backup %s", oldest)
	}
}

func (s *Store) backupNames() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ListBackups returns the backup set newest-first.
func (s *Store) ListBackups() ([]BackupInfo, error) {
	names, err := s.backupNames()
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	backups := make([]BackupInfo, 0, len(names))
	for _, name := range names {
		info := BackupInfo{Name: name}
		if stat, err := os.Stat(filepath.Join(s.backupDir, name)); err == nil {
			info.Timestamp = stat.ModTime()
		}
		backups = append(backups, info)
	}
	return backups, nil
}

// RestoreBackup overwrites the live file with the named backup's bytes,
// snapshotting the current live file first so the restore is itself
// undoable. A missing backup yields ErrBackupNotFound; a failed snapshot
// aborts before the live file is touched.
func (s *Store) RestoreBackup(name string) error {
	if !safeEntryName(name) {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	backupPath := filepath.Join(s.backupDir, name)
	data, err := os.ReadFile(backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, name)
		}
		return fmt.Errorf("read backup %s: %w", name, err)
	}

	if _, err := os.Stat(s.loginFile); err == nil {
		if err := s.createBackupLocked(); err != nil {
			return fmt.Errorf("backup before restore: %w", err)
		}
	}

	if err := writeFileAtomic(s.loginFile, data); err != nil {
		return fmt.Errorf("restore backup %s: %w", name, err)
	}
	log.Printf("[ConfigStore] restored backup %s", name)
	return nil
}

// ListPresets returns all preset names, sorted.
func (s *Store) ListPresets() ([]string, error) {
	entries, err := os.ReadDir(s.presetsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list presets: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, presetSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, presetSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// LoadPreset parses the named preset. Names come back from ListPresets or
// SavePreset already sanitized; anything else simply fails the lookup.
func (s *Store) LoadPreset(name string) (Record, error) {
	if !safeEntryName(name) {
		return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	path := filepath.Join(s.presetsDir, name+presetSuffix)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	return ParseFile(path), nil
}

// SavePreset stores the record under a sanitized form of name and returns
// the name actually used.
func (s *Store) SavePreset(name string, record Record) (string, error) {
	safeName := sanitize.PresetName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.presetsDir, safeName+presetSuffix)
	if err := writeFileAtomic(path, record.Encode()); err != nil {
		return "", fmt.Errorf("save preset %s: %w", safeName, err)
	}
	log.Printf("[ConfigStore] saved preset %s", safeName)
	return safeName, nil
}

// DeletePreset removes the named preset, reporting whether it existed.
func (s *Store) DeletePreset(name string) bool {
	if !safeEntryName(name) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.presetsDir, name+presetSuffix)
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[ConfigStore] failed to delete preset %s: %v", name, err)
		}
		return false
	}
	log.Printf("[ConfigStore] deleted preset %s", name)
	return true
}

// safeEntryName rejects names that could escape the store's directories.
// Sanitized preset names and generated backup names always pass.
func safeEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

// writeFileAtomic writes data via a temp file and rename so a crash cannot
// leave a half-written config for the relay to read.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
