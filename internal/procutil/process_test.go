//go:build !windows

package procutil

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestIsProcessAliveSelf(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Error("IsProcessAlive(self) = false; want true")
	}
}

func TestIsProcessAliveBogusPID(t *testing.T) {
	// PIDs near the max are vanishingly unlikely to be in use.
	if IsProcessAlive(4194300) {
		t.Error("IsProcessAlive(4194300) = true; want false")
	}
}

func TestTerminateByPID(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	pid := cmd.Process.Pid

	if err := TerminateByPID(pid); err != nil {
		t.Fatalf("TerminateByPID(%d): %v", pid, err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cmd.Process.Kill()
		t.Fatal("process did not exit after SIGTERM")
	}
}

func TestKillByPID(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	pid := cmd.Process.Pid

	if err := KillByPID(pid); err != nil {
		t.Fatalf("KillByPID(%d): %v", pid, err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after SIGKILL")
	}
}
