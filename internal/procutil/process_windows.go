//go:build windows

package procutil

import "os"

// GracefulTerminate terminates the process. Windows has no SIGTERM
// equivalent, so this falls back to Kill.
func GracefulTerminate(p *os.Process) error {
	return p.Kill()
}

// TerminateByPID terminates the process identified by pid.
func TerminateByPID(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}

// KillByPID forcefully terminates the process identified by pid.
func KillByPID(pid int) error {
	return TerminateByPID(pid)
}

// IsProcessAlive checks whether a process with the given pid is still running.
// os.FindProcess succeeds for any pid on Windows, so a zero-signal probe is
// not available; treat a successful lookup as alive.
func IsProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	process.Release()
	return true
}
