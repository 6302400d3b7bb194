// Package hostcmd runs the external tools the domain workers depend on
// (pactl, bluetoothctl, mpv, xrandr) with a uniform outcome classification.
//
// Every call carries an explicit timeout so a hung tool can never stall
// its worker indefinitely, and failures come back as values rather than
// errors so callers apply one policy: log, leave state unchanged, retry on
// the next natural trigger.
package hostcmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// Outcome classifies how an external call ended.
type Outcome int

const (
	// OK means the tool ran and exited zero.
	OK Outcome = iota
	// ToolMissing means the binary is not installed or not on PATH.
	ToolMissing
	// TimedOut means the call exceeded its timeout and was killed.
	TimedOut
	// Failed means the tool ran but exited non-zero, or could not start
	// for another reason.
	Failed
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case ToolMissing:
		return "tool_missing"
	case TimedOut:
		return "timed_out"
	default:
		return "failed"
	}
}

// Result is the complete outcome of one external call.
type Result struct {
	Outcome Outcome
	Stdout  string
	Stderr  string

	// Err is the underlying error for non-OK outcomes, for logging only.
	Err error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Outcome == OK
}

// Run executes name with args, waiting at most the deadline already carried
// by ctx. Callers build ctx with context.WithTimeout.
//
// The returned Result always has captured stdout/stderr (possibly partial
// on timeout) and a classified Outcome; Run itself never returns an error.
func Run(ctx context.Context, name string, args ...string) Result {
	return run(ctx, nil, name, args...)
}

// RunEnv is Run with extra environment variables appended to the current
// process environment, e.g. "DISPLAY=:0" for xrandr.
func RunEnv(ctx context.Context, env []string, name string, args ...string) Result {
	return run(ctx, env, name, args...)
}

func run(ctx context.Context, extraEnv []string, name string, args ...string) Result {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Err:    err,
	}

	switch {
	case err == nil:
		res.Outcome = OK
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Outcome = TimedOut
	case isNotFound(err):
		res.Outcome = ToolMissing
	default:
		res.Outcome = Failed
	}
	return res
}

// isNotFound reports whether err means the binary does not exist.
func isNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	// An absolute path to a missing binary surfaces as ENOENT instead.
	return errors.Is(err, os.ErrNotExist)
}

// FirstLine returns the first line of s with surrounding space trimmed,
// for compact error log messages.
func FirstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
