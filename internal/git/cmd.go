// Package git provides access to the Git CLI with a Git library-like
// interface.
//
// All shell-to-Git interactions should be done through this package.
package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"strings"

	"github.com/prassanna-ravishankar/worktrunk/internal/scanutil"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

type execer interface {
	Run(*exec.Cmd) error
	Output(*exec.Cmd) ([]byte, error)
	Start(*exec.Cmd) error
	Wait(*exec.Cmd) error
	Kill(*exec.Cmd) error
}

type realExecer struct{}

var _realExec execer = realExecer{}

func (realExecer) Run(cmd *exec.Cmd) error              { return cmd.Run() }
func (realExecer) Output(cmd *exec.Cmd) ([]byte, error) { return cmd.Output() }
func (realExecer) Start(cmd *exec.Cmd) error            { return cmd.Start() }
func (realExecer) Wait(cmd *exec.Cmd) error             { return cmd.Wait() }
func (realExecer) Kill(cmd *exec.Cmd) error             { return cmd.Process.Kill() }

// gitCmd provides a fluent API around exec.Cmd,
// unconditionally capturing stderr into errors.
type gitCmd struct {
	cmd *exec.Cmd
	log *silog.Logger

	// Wraps an error with stderr output.
	wrap func(error) error
}

func newGitCmd(ctx context.Context, log *silog.Logger, args ...string) *gitCmd {
	name := "git"
	if len(args) > 0 {
		name += " " + args[0]
	}

	stderr, wrap := stderrWriter(name, log)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stderr = stderr

	return &gitCmd{
		cmd:  cmd,
		log:  log,
		wrap: wrap,
	}
}

// Dir sets the working directory for the command.
func (c *gitCmd) Dir(dir string) *gitCmd {
	c.cmd.Dir = dir
	return c
}

// Stdout sets the writer for the command's stdout.
func (c *gitCmd) Stdout(w io.Writer) *gitCmd {
	c.cmd.Stdout = w
	return c
}

func (c *gitCmd) Stderr(w io.Writer) *gitCmd {
	c.cmd.Stderr = w
	c.wrap = func(err error) error { return err }
	return c
}

// Stdin supplies the command's stdin from the given reader.
func (c *gitCmd) Stdin(r io.Reader) *gitCmd {
	c.cmd.Stdin = r
	return c
}

// StdinString supplies the command's stdin from the given string.
func (c *gitCmd) StdinString(s string) *gitCmd {
	return c.Stdin(strings.NewReader(s))
}

// AppendEnv appends environment variables to the command.
func (c *gitCmd) AppendEnv(env ...string) *gitCmd {
	if len(env) == 0 {
		return c
	}

	if c.cmd.Env == nil {
		c.cmd.Env = os.Environ()
	}
	c.cmd.Env = append(c.cmd.Env, env...)
	return c
}

// StdoutPipe returns a pipe that will be connected to the command's stdout.
func (c *gitCmd) StdoutPipe() (io.ReadCloser, error) {
	return c.cmd.StdoutPipe()
}

// StdinPipe returns a pipe that will be connected to the command's stdin.
func (c *gitCmd) StdinPipe() (io.WriteCloser, error) {
	return c.cmd.StdinPipe()
}

// Run runs the command, blocking until it completes.
// It returns an error if the command fails with a non-zero exit code.
func (c *gitCmd) Run(exec execer) error {
	return c.wrap(exec.Run(c.cmd))
}

// Start starts the command, returning immediately.
func (c *gitCmd) Start(exec execer) error {
	return c.wrap(exec.Start(c.cmd))
}

// Wait waits for a command started with Start to complete.
// It returns an error if the command fails with a non-zero exit code.
func (c *gitCmd) Wait(exec execer) error {
	return c.wrap(exec.Wait(c.cmd))
}

// Kill kills a command started with Start.
func (c *gitCmd) Kill(exec execer) error {
	return c.wrap(exec.Kill(c.cmd))
}

// Output runs the command and returns its stdout.
// It returns an error if the command fails with a non-zero exit code.
func (c *gitCmd) Output(exec execer) ([]byte, error) {
	out, err := exec.Output(c.cmd)
	return out, c.wrap(err)
}

// OutputString runs the command and returns its stdout as a string,
// with the trailing newline removed.
// It returns an error if the command fails with a non-zero exit code.
func (c *gitCmd) OutputString(exec execer) (string, error) {
	out, err := c.Output(exec)
	out, _ = bytes.CutSuffix(out, []byte{'\n'})
	return string(out), err
}

// cmdStdinWriter is an io.WriteCloser that writes to a command's stdin,
// and upon closure, closes the stdin stream and waits for the command to exit.
type cmdStdinWriter struct {
	cmd   *gitCmd
	exec  execer
	stdin io.WriteCloser
}

var _ io.WriteCloser = (*cmdStdinWriter)(nil)

func (w *cmdStdinWriter) Write(p []byte) (n int, err error) {
	return w.stdin.Write(p)
}

func (w *cmdStdinWriter) Close() error {
	err := w.stdin.Close()
	if err != nil {
		return errors.Join(err, w.cmd.Kill(w.exec))
	}
	return w.cmd.Wait(w.exec)
}

// extraConfig specifies -c key=value overrides to apply to a git
// invocation, used sparingly (e.g. to pin merge.conflictStyle for
// deterministic merge-tree probes).
type extraConfig struct {
	Editor             string
	MergeConflictStyle string
}

// Args returns the -c flags for the overrides that are set.
func (cfg extraConfig) Args() []string {
	var args []string
	if cfg.Editor != "" {
		args = append(args, "-c", "core.editor="+cfg.Editor)
	}
	if cfg.MergeConflictStyle != "" {
		args = append(args, "-c", "merge.conflictStyle="+cfg.MergeConflictStyle)
	}
	return args
}

// WithConfig applies -c overrides from cfg to the command.
func (c *gitCmd) WithConfig(cfg extraConfig) *gitCmd {
	if args := cfg.Args(); len(args) > 0 {
		c.cmd.Args = append(c.cmd.Args[:1], append(args, c.cmd.Args[1:]...)...)
	}
	return c
}

// WithStdin is an alias for Stdin, for call sites that prefer the
// fluent With-prefixed spelling.
func (c *gitCmd) WithStdin(r io.Reader) *gitCmd { return c.Stdin(r) }

// WithStdout is an alias for Stdout.
func (c *gitCmd) WithStdout(w io.Writer) *gitCmd { return c.Stdout(w) }

// WithStderr is an alias for Stderr.
func (c *gitCmd) WithStderr(w io.Writer) *gitCmd { return c.Stderr(w) }

// WithLogPrefix overrides the prefix used when logging this command's
// stderr at debug level (normally derived from the first argument).
func (c *gitCmd) WithLogPrefix(prefix string) *gitCmd {
	stderr, wrap := stderrWriter(prefix, c.log)
	c.cmd.Stderr = stderr
	c.wrap = wrap
	return c
}

// CaptureStdout redirects stdout into an in-memory buffer that is
// folded into the wrapped error if the command fails, mirroring how
// stderr is captured. Use for commands whose stdout is only
// interesting as diagnostic output on failure.
func (c *gitCmd) CaptureStdout() *gitCmd {
	var buf bytes.Buffer
	c.cmd.Stdout = &buf
	prevWrap := c.wrap
	c.wrap = func(err error) error {
		err = prevWrap(err)
		if err == nil || buf.Len() == 0 {
			return err
		}
		return errors.Join(err, fmt.Errorf("stdout:\n%s", bytes.TrimSpace(buf.Bytes())))
	}
	return c
}

// Scan runs the command and streams its stdout through split,
// yielding one token per call along with any error encountered
// reading or waiting for the command.
func (c *gitCmd) Scan(exec execer, split bufio.SplitFunc) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		stdout, err := c.StdoutPipe()
		if err != nil {
			yield(nil, fmt.Errorf("pipe: %w", err))
			return
		}

		if err := c.Start(exec); err != nil {
			yield(nil, fmt.Errorf("start: %w", err))
			return
		}

		var finished bool
		defer func() {
			if !finished {
				_ = c.Kill(exec)
			}
		}()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		scanner.Split(split)
		for scanner.Scan() {
			if !yield(scanner.Bytes(), nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("scan: %w", err))
			return
		}

		if err := c.Wait(exec); err != nil {
			yield(nil, c.wrap(fmt.Errorf("wait: %w", err)))
			return
		}

		finished = true
	}
}

// ScanLines is Scan with bufio.ScanLines, the common case for
// line-oriented porcelain output.
func (c *gitCmd) ScanLines(exec execer) iter.Seq2[[]byte, error] {
	return c.Scan(exec, bufio.ScanLines)
}

// splitNullByte is a bufio.SplitFunc that splits on single NUL bytes,
// kept as an alias so existing callers need not import scanutil directly.
func splitNullByte(data []byte, atEOF bool) (advance int, token []byte, err error) {
	return scanutil.SplitNull(data, atEOF)
}

// Returns an io.Writer that will record sterr for later use,
// and a wrap function that will wrap an error with the recorded
// stderr output.
func stderrWriter(cmd string, logger *silog.Logger) (w io.Writer, wrap func(error) error) {
	if logger.Level() <= silog.LevelDebug {
		// If logging is enabled, return an io.Writer
		// that writes to the logger.
		cmdLog := logger.WithPrefix(cmd)
		w, flush := silog.Writer(cmdLog, silog.LevelDebug)
		return w, func(err error) error {
			flush()
			return err
		}
	}

	// Otherwise, buffer it all in-memory to put into the error.
	var buf bytes.Buffer
	return &buf, func(err error) error {
		stderr := bytes.TrimSpace(buf.Bytes())
		if err == nil || len(stderr) == 0 {
			return err
		}

		return errors.Join(err, fmt.Errorf("stderr:\n%s", stderr))
	}
}
