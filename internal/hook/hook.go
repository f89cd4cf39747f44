// Package hook runs project-configured lifecycle commands (pre-commit,
// post-create, post-switch, and so on) either sequentially and
// blocking, or detached in the background, depending on phase.
package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

// Mode selects how a batch of commands is run.
type Mode int

const (
	// SequentialBlocking runs each command in order, inheriting the
	// parent's stdio, and waits for it to exit before starting the next.
	SequentialBlocking Mode = iota

	// ParallelDetached spawns every command as an independent,
	// detached process and returns without waiting for any of them.
	ParallelDetached
)

// FailureStrategy controls what a non-zero exit does to the batch.
type FailureStrategy int

const (
	// FailFast aborts the remaining commands as soon as one fails.
	FailFast FailureStrategy = iota

	// Warn records the first failure but keeps running the rest.
	Warn
)

// Command is one hook invocation, already expanded to its final argv
// (or shell fragment) and resolved to the worktree it runs in.
type Command struct {
	// Phase names the lifecycle point this command belongs to
	// (e.g. "post-create", "pre-commit"). Used for announcements and
	// log file names.
	Phase string

	// Name identifies the command within its phase, from project
	// config. Used for log file names and --name filtering.
	Name string

	// Shell is the expanded shell fragment to execute via `sh -c`.
	Shell string

	// Dir is the worktree directory the command runs in.
	Dir string

	// Branch is included in detached-mode log file names.
	Branch string
}

// FailedError reports that a sequential hook exited non-zero.
type FailedError struct {
	Phase    string
	Name     string
	ExitCode int
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("hook %s/%s exited with code %d", e.Phase, e.Name, e.ExitCode)
}

// Run executes commands according to mode and strategy.
//
// commonDir is the git common directory, used to resolve the
// wt-logs/ directory for detached-mode output.
func Run(ctx context.Context, log *silog.Logger, commonDir string, commands []Command, mode Mode, strategy FailureStrategy) error {
	switch mode {
	case ParallelDetached:
		return runDetached(log, commonDir, commands)
	default:
		return runSequential(ctx, log, commands, strategy)
	}
}

func runSequential(ctx context.Context, log *silog.Logger, commands []Command, strategy FailureStrategy) error {
	var firstErr *FailedError
	for _, c := range commands {
		log.Infof("%s %s: %s", c.Phase, c.Name, c.Shell)

		cmd := exec.CommandContext(ctx, "sh", "-c", c.Shell)
		cmd.Dir = c.Dir
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		err := cmd.Run()
		if err == nil {
			continue
		}

		var exitErr *exec.ExitError
		code := 1
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		failed := &FailedError{Phase: c.Phase, Name: c.Name, ExitCode: code}

		switch strategy {
		case FailFast:
			return failed
		default: // Warn
			if firstErr == nil {
				firstErr = failed
			}
			log.Warnf("%s %s: exited with code %d, continuing", c.Phase, c.Name, code)
		}
	}

	// Per git's own post-hook convention, a warn-mode post-merge
	// failure is still surfaced at the end even though earlier
	// commands in the batch kept running.
	if firstErr != nil && firstErr.Phase == "post-merge" {
		return firstErr
	}
	return nil
}

func runDetached(log *silog.Logger, commonDir string, commands []Command) error {
	logDir := filepath.Join(commonDir, "wt-logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create hook log directory: %w", err)
	}

	for _, c := range commands {
		log.Infof("%s %s: %s (detached)", c.Phase, c.Name, c.Shell)

		logPath := filepath.Join(logDir, c.Branch+"-"+c.Phase+"-"+c.Name+".log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			log.Warnf("%s %s: could not open log file: %v", c.Phase, c.Name, err)
			continue
		}

		cmd := exec.Command("sh", "-c", c.Shell)
		cmd.Dir = c.Dir
		cmd.Stdout = logFile
		cmd.Stderr = logFile
		cmd.SysProcAttr = detachAttr()

		if err := cmd.Start(); err != nil {
			log.Warnf("%s %s: failed to start: %v", c.Phase, c.Name, err)
			_ = logFile.Close()
			continue
		}
		// The parent never waits or reaps; the child's exit status
		// is never observed. Close our handle, the child keeps its own.
		_ = logFile.Close()
		log.Debugf("%s %s: pid %s, log %s", c.Phase, c.Name, strconv.Itoa(cmd.Process.Pid), logPath)
	}
	return nil
}
