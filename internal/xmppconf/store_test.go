package xmppconf

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, maxBackups int) *Store {
	t.Helper()
	base := t.TempDir()
	store := NewStore(
		filepath.Join(base, "xmpp-login.txt"),
		filepath.Join(base, "presets"),
		filepath.Join(base, "backups"),
		maxBackups,
	)

	// Deterministic, strictly increasing clock so every backup gets a
	// distinct second-resolution name.
	current := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
	return store
}

func testRecord(user string) Record {
	return Record{"user": user, "pw": "secret"}
}

func TestSaveFirstTimeCreatesNoBackup(t *testing.T) {
	store := newTestStore(t, 5)

	if err := store.Save(testRecord("a@b"), true); err != nil {
		t.Fatalf("Save: %v", err)
	}

	backups, err := store.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("first save created %d backups; want 0", len(backups))
	}

	if got := store.Load().StringVal("user"); got != "a@b" {
		t.Errorf("Load user = %q; want a@b", got)
	}
}

func TestSaveBacksUpPreviousState(t *testing.T) {
	store := newTestStore(t, 5)

	if err := store.Save(testRecord("old@host"), true); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testRecord("new@host"), true); err != nil {
		t.Fatal(err)
	}

	backups, err := store.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("got %d backups; want 1", len(backups))
	}

	data, err := os.ReadFile(filepath.Join(store.backupDir, backups[0].Name))
	if err != nil {
		t.Fatal(err)
	}
	if got := Parse(strings.NewReader(string(data))).StringVal("user"); got != "old@host" {
		t.Errorf("backup captured user %q; want pre-save state old@host", got)
	}
}

func TestSaveWithoutBackup(t *testing.T) {
	store := newTestStore(t, 5)

	if err := store.Save(testRecord("one@a"), true); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testRecord("two@b"), false); err != nil {
		t.Fatal(err)
	}

	backups, _ := store.ListBackups()
	if len(backups) != 0 {
		t.Errorf("Save(backup=false) created %d backups; want 0", len(backups))
	}
}

func TestBackupRetentionCap(t *testing.T) {
	const maxBackups = 3
	store := newTestStore(t, maxBackups)

	for i := 0; i < 10; i++ {
		if err := store.Save(testRecord("u@h"), true); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := store.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	// Retention is a soft cap: cleanup after creation may transiently be
	// one over if interrupted, but a completed save sequence must land on
	// the cap exactly, keeping the newest entries.
	if len(backups) != maxBackups {
		t.Fatalf("got %d backups; want %d", len(backups), maxBackups)
	}
	for i := 1; i < len(backups); i++ {
		if backups[i-1].Name <= backups[i].Name {
			t.Errorf("ListBackups not newest-first: %s before %s", backups[i-1].Name, backups[i].Name)
		}
	}
}

func TestRestoreBackupUnknownName(t *testing.T) {
	store := newTestStore(t, 5)
	if err := store.Save(testRecord("live@host"), true); err != nil {
		t.Fatal(err)
	}

	if err := store.RestoreBackup("xmpp-login_19990101_000000.txt"); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("RestoreBackup(unknown) = %v; want ErrBackupNotFound", err)
	}
	if err := store.RestoreBackup("../../../etc/passwd"); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("RestoreBackup(traversal) = %v; want ErrBackupNotFound", err)
	}

	if got := store.Load().StringVal("user"); got != "live@host" {
		t.Errorf("live file changed to %q after failed restore", got)
	}
	backups, _ := store.ListBackups()
	if len(backups) != 0 {
		t.Errorf("failed restore changed backup set: %d entries", len(backups))
	}
}

func TestRestoreBackupSwapsContentAndSnapshotsCurrent(t *testing.T) {
	store := newTestStore(t, 5)

	if err := store.Save(testRecord("first@host"), true); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testRecord("second@host"), true); err != nil {
		t.Fatal(err)
	}

	backups, _ := store.ListBackups()
	if len(backups) != 1 {
		t.Fatalf("precondition: got %d backups; want 1", len(backups))
	}
	target := backups[0].Name

	if err := store.RestoreBackup(target); err != nil {
		t.Fatalf("RestoreBackup: %v", err)
	}

	if got := store.Load().StringVal("user"); got != "first@host" {
		t.Errorf("live user = %q after restore; want first@host", got)
	}

	// The restore snapshotted the pre-restore live file, so the operation
	// is itself reversible.
	backups, _ = store.ListBackups()
	if len(backups) != 2 {
		t.Fatalf("got %d backups after restore; want 2", len(backups))
	}
	data, err := os.ReadFile(filepath.Join(store.backupDir, backups[0].Name))
	if err != nil {
		t.Fatal(err)
	}
	if got := Parse(strings.NewReader(string(data))).StringVal("user"); got != "second@host" {
		t.Errorf("newest backup user = %q; want pre-restore state second@host", got)
	}
}

func TestSaveAbortsWhenBackupCannotBeWritten(t *testing.T) {
	store := newTestStore(t, 5)

	if err := store.Save(testRecord("keep@host"), true); err != nil {
		t.Fatal(err)
	}

	// Occupy the backup directory path with a regular file so the
	// pre-save snapshot cannot be created.
	if err := os.RemoveAll(store.backupDir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.backupDir, []byte("in the way"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := store.Save(testRecord("clobber@host"), true); err == nil {
		t.Fatal("Save with unwritable backup dir = nil; want error")
	}
	if got := store.Load().StringVal("user"); got != "keep@host" {
		t.Errorf("live user = %q after aborted save; want keep@host", got)
	}
}

func TestRestoreBackupSurfacesIOFailure(t *testing.T) {
	store := newTestStore(t, 5)

	if err := store.Save(testRecord("first@host"), true); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testRecord("second@host"), true); err != nil {
		t.Fatal(err)
	}
	backups, _ := store.ListBackups()
	if len(backups) != 1 {
		t.Fatalf("precondition: got %d backups; want 1", len(backups))
	}
	target := backups[0].Name

	if err := os.RemoveAll(store.backupDir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.backupDir, []byte("in the way"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := store.RestoreBackup(target)
	if err == nil {
		t.Fatal("RestoreBackup with damaged backup dir = nil; want error")
	}
	if errors.Is(err, ErrBackupNotFound) {
		t.Errorf("RestoreBackup error = %v; want an I/O failure, not not-found", err)
	}
	if got := store.Load().StringVal("user"); got != "second@host" {
		t.Errorf("live user = %q after failed restore; want second@host", got)
	}
}

func TestSavePresetSanitizesName(t *testing.T) {
	store := newTestStore(t, 5)

	saved, err := store.SavePreset("a b", testRecord("p@h"))
	if err != nil {
		t.Fatalf("SavePreset: %v", err)
	}
	if saved != "a_b" {
		t.Errorf("SavePreset name = %q; want a_b", saved)
	}

	names, err := store.ListPresets()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"a_b"}) {
		t.Errorf("ListPresets = %v; want [a_b]", names)
	}
}

func TestLoadPreset(t *testing.T) {
	store := newTestStore(t, 5)

	name, err := store.SavePreset("work", testRecord("work@host"))
	if err != nil {
		t.Fatal(err)
	}

	record, err := store.LoadPreset(name)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if record.StringVal("user") != "work@host" {
		t.Errorf("preset user = %q; want work@host", record.StringVal("user"))
	}
}

func TestLoadPresetNotFound(t *testing.T) {
	store := newTestStore(t, 5)

	_, err := store.LoadPreset("nope")
	if err == nil {
		t.Fatal("LoadPreset(nope) = nil error; want ErrPresetNotFound")
	}
	if !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("LoadPreset error = %v; want ErrPresetNotFound", err)
	}
}

func TestDeletePreset(t *testing.T) {
	store := newTestStore(t, 5)

	name, err := store.SavePreset("temp", testRecord("t@h"))
	if err != nil {
		t.Fatal(err)
	}

	if !store.DeletePreset(name) {
		t.Error("DeletePreset(existing) = false; want true")
	}
	if store.DeletePreset(name) {
		t.Error("DeletePreset(deleted) = true; want false")
	}
	if store.DeletePreset("../escape") {
		t.Error("DeletePreset(traversal) = true; want false")
	}
}

func TestListPresetsEmptyDir(t *testing.T) {
	store := newTestStore(t, 5)

	names, err := store.ListPresets()
	if err != nil {
		t.Fatalf("ListPresets on missing dir: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListPresets = %v; want empty", names)
	}
}
