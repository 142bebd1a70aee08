// Package tools executes authorized shell commands on behalf of the
// turn loop. Execution faults (non-zero exit, timeout, launch failure)
// are data outcomes fed back to the model, never propagated errors.
package tools

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// DefaultTimeout is the hard limit on a single command. Once a command
// is authorized it runs to completion or timeout; cancelling an
// in-flight command is not supported.
const DefaultTimeout = 30 * time.Second

// Result classifies one command execution.
type Result struct {
	Output   string
	ExitCode int
	TimedOut bool
}

// OK reports whether the command completed with exit code zero.
func (r Result) OK() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Runner executes shell commands with a hard timeout. Commands matching
// an auto-approve pattern may skip the interactive confirmation.
type Runner struct {
	Timeout     time.Duration
	AutoApprove []string
	Logger      *zap.Logger
}

// NewRunner creates a runner with the default timeout.
func NewRunner(autoApprove []string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Timeout:     DefaultTimeout,
		AutoApprove: autoApprove,
		Logger:      logger,
	}
}

// Run executes the command through the shell and classifies the outcome.
// Output is the merged stdout/stderr text; failures are prefixed with a
// machine-readable marker carrying the exit code, and a timeout replaces
// the output with a synthetic notice. The caller's context is
// deliberately not observed; an authorized command runs to completion or
// timeout.
func (r *Runner) Run(_ context.Context, command string) Result {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// The deadline is detached from the caller's context: once a command
	// is authorized, cancelling the turn must not kill it.
	cctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "sh", "-c", command)
	output, err := cmd.CombinedOutput()

	if cctx.Err() == context.DeadlineExceeded {
		r.Logger.Debug("command timed out", zap.String("command", command))
		return Result{
			Output:   fmt.Sprintf("[Command timed out after %d seconds]", int(timeout.Seconds())),
			ExitCode: -1,
			TimedOut: true,
		}
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			r.Logger.Debug("command failed",
				zap.String("command", command), zap.Int("exit_code", code))
			return Result{
				Output:   fmt.Sprintf("[Command failed with exit code %d]\n%s", code, output),
				ExitCode: code,
			}
		}
		// The command could not even be launched; fold it into a
		// failure outcome rather than surfacing a client-side error.
		r.Logger.Debug("command launch failed",
			zap.String("command", command), zap.Error(err))
		return Result{
			Output:   fmt.Sprintf("[Command failed: %v]", err),
			ExitCode: -1,
		}
	}

	r.Logger.Debug("command succeeded", zap.String("command", command))
	return Result{Output: string(output)}
}

// IsAutoApproved reports whether the command matches one of the
// configured auto-approve glob patterns and may skip confirmation.
// Invalid patterns fall back to exact comparison.
func (r *Runner) IsAutoApproved(command string) bool {
	for _, pattern := range r.AutoApprove {
		match, err := doublestar.Match(pattern, command)
		if err != nil {
			r.Logger.Debug("invalid auto_approve pattern",
				zap.String("pattern", pattern), zap.Error(err))
			if command == pattern {
				return true
			}
			continue
		}
		if match {
			return true
		}
	}
	return false
}
