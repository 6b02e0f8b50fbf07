// Package restart drives the relay's stop-and-start sequence. A restart picks
// one strategy up front and runs it to a terminal state; a failed attempt
// is never retried automatically.
package restart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/xmproxy/webapp/internal/eventbus"
	"github.com/xmproxy/webapp/internal/procutil"
)

// State names a step of the restart machine.
type State string

const (
	StateIdle      State = "idle"
	StateStopping  State = "stopping"
	StateStarting  State = "starting"
	StateVerifying State = "verifying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Strategy names the mechanism chosen for a restart invocation.
type Strategy string

const (
	// StrategyScripted shells out to the platform restart script.
	StrategyScripted Strategy = "scripted"
	// StrategyDirect stops and starts the relay process itself.
	StrategyDirect Strategy = "direct"
	// StrategyFallback nudges the relay down over the control protocol and
	// waits for its supervisor to bring it back.
	StrategyFallback Strategy = "fallback"
)

// DefaultScriptTimeout bounds the scripted path.
const DefaultScriptTimeout = 30 * time.Second

// ControlClient is the slice of the control-port client the orchestrator
// needs.
type ControlClient interface {
	IsReachable() bool
	RequestShutdown()
}

// Options configures an Orchestrator.
type Options struct {
	Control ControlClient
	Bus     *eventbus.Bus

	// ScriptPath is the preferred restart mechanism when it exists and is
	// executable.
	ScriptPath    string
	ScriptTimeout time.Duration

	// Binary enables the direct strategy: the orchestrator owns the relay
	// process, tracked through PIDFile, with output appended to LogFile.
	// ConfigFiles are candidate arguments; entries missing on disk are
	// omitted from the launch.
	Binary      string
	PIDFile     string
	LogFile     string
	ConfigFiles []string
}

// Result is the terminal outcome of one restart attempt.
type Result struct {
	Strategy Strategy `json:"strategy"`
	State    State    `json:"state"`
	Message  string   `json:"message"`
}

// Succeeded reports whether the attempt reached StateSucceeded.
func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

// Orchestrator runs restart attempts. It is stateless between invocations:
// every Restart starts over at Idle.
type Orchestrator struct {
	opts Options

	// Polling knobs, overridable in tests.
	stopInterval     time.Duration
	stopAttempts     int
	verifyInterval   time.Duration
	verifyAttempts   int
	fallbackGrace    time.Duration
	fallbackInterval time.Duration
	fallbackAttempts int
}

// New builds an orchestrator with production polling bounds: ~5s for a
// graceful stop, ~10s for reachability after a direct start, and 10x1s for
// the supervisor fallback.
func New(opts Options) *Orchestrator {
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = DefaultScriptTimeout
	}
	return &Orchestrator{
		opts:             opts,
		stopInterval:     250 * time.Millisecond,
		stopAttempts:     20,
		verifyInterval:   500 * time.Millisecond,
		verifyAttempts:   20,
		fallbackGrace:    2 * time.Second,
		fallbackInterval: time.Second,
		fallbackAttempts: 10,
	}
}

// Restart runs one attempt and returns its terminal result. Failures are
// values, not errors: the caller decides how to surface them.
func (o *Orchestrator) Restart() Result {
	strategy := o.selectStrategy()
	log.Printf("[Restart] restarting relay via %s strategy", strategy)
	o.publish(strategy, StateIdle, "")

	var result Result
	switch strategy {
	case StrategyScripted:
		result = o.runScripted()
	case StrategyDirect:
		result = o.runDirect()
	default:
		result = o.runFallback()
	}

	if result.Succeeded() {
		log.Printf("[Restart] %s", result.Message)
	} else {
		log.Printf("[Restart] attempt failed: %s", result.Message)
	}
	o.publish(result.Strategy, result.State, result.Message)
	return result
}

// selectStrategy decides the mechanism once per invocation: the script when
// present and executable, direct process management when a binary is
// configured, otherwise the protocol fallback.
func (o *Orchestrator) selectStrategy() Strategy {
	if o.opts.ScriptPath != "" {
		if info, err := os.Stat(o.opts.ScriptPath); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return StrategyScripted
		}
	}
	if o.opts.Binary != "" {
		return StrategyDirect
	}
	return StrategyFallback
}

func (o *Orchestrator) runScripted() Result {
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.ScriptTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.opts.ScriptPath)
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return Result{Strategy: StrategyScripted, State: StateSucceeded, Message: "Service restarted successfully"}
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{Strategy: StrategyScripted, State: StateFailed, Message: "Restart script timed out"}
	}

	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = err.Error()
	}
	return Result{Strategy: StrategyScripted, State: StateFailed, Message: fmt.Sprintf("Restart script failed: %s", detail)}
}

func (o *Orchestrator) runDirect() Result {
	o.publish(StrategyDirect, StateStopping, "")
	o.stopProcess()

	o.publish(StrategyDirect, StateStarting, "")
	if err := o.startProcess(); err != nil {
		return Result{Strategy: StrategyDirect, State: StateFailed, Message: fmt.Sprintf("Failed to start relay: %v", err)}
	}

	o.publish(StrategyDirect, StateVerifying, "")
	for i := 0; i < o.verifyAttempts; i++ {
		if o.opts.Control.IsReachable() {
			return Result{Strategy: StrategyDirect, State: StateSucceeded, Message: "Service restarted successfully"}
		}
		time.Sleep(o.verifyInterval)
	}
	return Result{Strategy: StrategyDirect, State: StateFailed, Message: "Service did not become reachable after start"}
}

// stopProcess brings down the recorded relay process: SIGTERM, a bounded
// wait for exit, then SIGKILL. No pid on record means already stopped.
func (o *Orchestrator) stopProcess() {
	pid, ok := o.readPID()
	if !ok || !procutil.IsProcessAlive(pid) {
		return
	}

	if err := procutil.TerminateByPID(pid); err != nil {
		log.Printf("[Restart] SIGTERM to pid %d failed: %v", pid, err)
	}

	for i := 0; i < o.stopAttempts; i++ {
		if !procutil.IsProcessAlive(pid) {
			return
		}
		time.Sleep(o.stopInterval)
	}

	log.Printf("[Restart] relay pid %d did not exit gracefully, killing", pid)
	if err := procutil.KillByPID(pid); err != nil {
		log.Printf("[Restart] SIGKILL to pid %d failed: %v", pid, err)
	}
}

// startProcess launches the relay in the background with the config files
// that exist on disk, records the new pid, and redirects output to the log
// sink.
func (o *Orchestrator) startProcess() error {
	var args []string
	for _, path := range o.opts.ConfigFiles {
		if _, err := os.Stat(path); err == nil {
			args = append(args, path)
		}
	}

	var sink io.Writer = io.Discard
	if o.opts.LogFile != "" {
		logFile, err := os.OpenFile(o.opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("[Restart] cannot open relay log sink %s: %v", o.opts.LogFile, err)
		} else {
			sink = logFile
			defer func() {
				// The child holds its own descriptor after Start.
				logFile.Close()
			}()
		}
	}

	cmd := exec.Command(o.opts.Binary, args...)
	cmd.Stdout = sink
	cmd.Stderr = sink

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", o.opts.Binary, err)
	}

	pid := cmd.Process.Pid
	if err := o.writePID(pid); err != nil {
		log.Printf("[Restart] failed to record relay pid %d: %v", pid, err)
	}
	log.Printf("[Restart] relay started (pid %d)", pid)

	// Reap the child when it eventually exits.
	go func() {
		_ = cmd.Wait()
	}()

	return nil
}

func (o *Orchestrator) runFallback() Result {
	o.publish(StrategyFallback, StateStopping, "")
	o.opts.Control.RequestShutdown()

	// Give the supervisor a moment to notice the exit and relaunch.
	time.Sleep(o.fallbackGrace)

	o.publish(StrategyFallback, StateVerifying, "")
	for i := 0; i < o.fallbackAttempts; i++ {
		if o.opts.Control.IsReachable() {
			return Result{Strategy: StrategyFallback, State: StateSucceeded, Message: "Service restarted"}
		}
		time.Sleep(o.fallbackInterval)
	}

	return Result{Strategy: StrategyFallback, State: StateFailed, Message: "Service did not restart within timeout"}
}

func (o *Orchestrator) readPID() (int, bool) {
	if o.opts.PIDFile == "" {
		return 0, false
	}
	data, err := os.ReadFile(o.opts.PIDFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		log.Printf("[Restart] invalid pid file %s: %q", o.opts.PIDFile, strings.TrimSpace(string(data)))
		return 0, false
	}
	return pid, true
}

func (o *Orchestrator) writePID(pid int) error {
	if o.opts.PIDFile == "" {
		return nil
	}
	return os.WriteFile(o.opts.PIDFile, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

func (o *Orchestrator) publish(strategy Strategy, state State, message string) {
	o.opts.Bus.Publish(eventbus.Envelope{
		Topic:  eventbus.TopicRestart,
		Source: eventbus.SourceOrchestrator,
		Payload: eventbus.RestartEvent{
			Strategy: string(strategy),
			State:    string(state),
			Message:  message,
		},
	})
}
