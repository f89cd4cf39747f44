package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/push"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/squash"
	"github.com/prassanna-ravishankar/worktrunk/internal/hook"
	"github.com/prassanna-ravishankar/worktrunk/internal/llm"
)

// stepCmd groups direct access to the mutation engine's individual
// steps, for scripting and debugging: each subcommand runs exactly
// one step that `switch`/`merge` would otherwise run as part of a
// larger plan.
type stepCmd struct {
	ForEach stepForEachCmd `cmd:"" name:"for-each" help:"Run a command in every worktree."`
	Push    stepPushCmd    `cmd:"" help:"Fast-forward one worktree to another's HEAD."`
	Squash  stepSquashCmd  `cmd:"" help:"Squash a branch's commits into one."`
	Rebase  stepRebaseCmd  `cmd:"" help:"Rebase a branch onto an upstream."`

	PostCreate stepPostCreateCmd `cmd:"" name:"post-create" help:"Run the post-create hooks."`
	PostStart  stepPostStartCmd  `cmd:"" name:"post-start" help:"Run the post-start hooks."`
	PreCommit  stepPreCommitCmd  `cmd:"" name:"pre-commit" help:"Run the pre-commit hooks."`
	PreMerge   stepPreMergeCmd   `cmd:"" name:"pre-merge" help:"Run the pre-merge hooks."`
	PostMerge  stepPostMergeCmd  `cmd:"" name:"post-merge" help:"Run the post-merge hooks."`
	PreRemove  stepPreRemoveCmd  `cmd:"" name:"pre-remove" help:"Run the pre-remove hooks."`
}

// stepForEachCmd runs an arbitrary command in every worktree,
// collecting failures instead of stopping at the first one: exit
// status is 0 if every invocation succeeded, otherwise the count of
// worktrees where it didn't.
type stepForEachCmd struct {
	Cmd  string   `arg:"" help:"Command to run."`
	Args []string `arg:"" optional:"" passthrough:"" help:"Arguments, after --."`
}

func (cmd *stepForEachCmd) Run(ctx context.Context, root *rootCmd) error {
	worktrees, err := root.repo.ListWorktrees(ctx)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}

	failures := 0
	for _, wt := range worktrees {
		c := exec.CommandContext(ctx, cmd.Cmd, cmd.Args...)
		c.Dir = wt.Path
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			root.log.Warnf("%s: %s %v: %v", wt.Path, cmd.Cmd, cmd.Args, err)
			failures++
		}
	}
	if failures > 0 {
		root.flushDirectives()
		os.Exit(failures)
	}
	return nil
}

// stepPushCmd is the bare fast-forward step merge otherwise runs as
// part of its larger plan.
type stepPushCmd struct {
	Source            string `arg:"" help:"Branch to push from."`
	Target            string `arg:"" help:"Branch to fast-forward."`
	AllowMergeCommits bool   `help:"Allow fast-forwarding across merge commits."`
}

func (cmd *stepPushCmd) Run(ctx context.Context, root *rootCmd) error {
	h := &push.Handler{
		Log:        root.log,
		Repository: push.RepositoryAdapter{Repository: root.repo},
	}
	return h.PushBranch(ctx, &push.Request{
		Source:            cmd.Source,
		Target:            cmd.Target,
		AllowMergeCommits: cmd.AllowMergeCommits,
	})
}

// stepSquashCmd is the bare squash step merge otherwise runs as part
// of its larger plan.
type stepSquashCmd struct {
	Branch  string `arg:"" help:"Branch to squash."`
	Base    string `arg:"" help:"Base ref the squash diffs against."`
	Message string `help:"Explicit squash commit message; generated if empty."`
}

func (cmd *stepSquashCmd) Run(ctx context.Context, root *rootCmd) error {
	s := &lazySquasher{repo: root.repo, log: root.log, llmTool: llm.Tool(root.userCfg.LLM)}
	return s.SquashBranch(ctx, cmd.Branch, cmd.Base, &squash.Options{Message: cmd.Message})
}

// stepRebaseCmd is the bare rebase step merge otherwise runs as part
// of its larger plan.
type stepRebaseCmd struct {
	Branch   string `arg:"" help:"Branch to rebase."`
	Upstream string `arg:"" help:"Upstream the branch diverged from."`
	Onto     string `help:"New base to rebase onto; defaults to Upstream."`
}

func (cmd *stepRebaseCmd) Run(ctx context.Context, root *rootCmd) error {
	worktrees, err := root.repo.ListWorktrees(ctx)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}
	var path string
	for _, wt := range worktrees {
		if wt.Branch == cmd.Branch {
			path = wt.Path
			break
		}
	}
	if path == "" {
		return &git.InvalidReferenceError{Ref: cmd.Branch}
	}

	wt, err := root.repo.OpenWorktree(ctx, path)
	if err != nil {
		return fmt.Errorf("open worktree %s: %w", path, err)
	}

	onto := cmd.Onto
	if onto == "" {
		onto = cmd.Upstream
	}
	return wt.Rebase(ctx, git.RebaseRequest{Branch: cmd.Branch, Upstream: cmd.Upstream, Onto: onto})
}

// stepPostCreateCmd, stepPostStartCmd, etc. each hardcode one hook
// phase and delegate to runHookPhase: kong gives each kong subcommand
// match its own concrete Run, with no clean way to pass "which
// subcommand matched" into one shared struct.
type stepPostCreateCmd struct {
	Name string `arg:"" optional:"" help:"Only run the hook with this name."`
}

func (cmd *stepPostCreateCmd) Run(ctx context.Context, root *rootCmd) error {
	return runHookPhase(ctx, root, "post-create", cmd.Name)
}

type stepPostStartCmd struct {
	Name string `arg:"" optional:"" help:"Only run the hook with this name."`
}

func (cmd *stepPostStartCmd) Run(ctx context.Context, root *rootCmd) error {
	return runHookPhase(ctx, root, "post-start", cmd.Name)
}

type stepPreCommitCmd struct {
	Name string `arg:"" optional:"" help:"Only run the hook with this name."`
}

func (cmd *stepPreCommitCmd) Run(ctx context.Context, root *rootCmd) error {
	return runHookPhase(ctx, root, "pre-commit", cmd.Name)
}

type stepPreMergeCmd struct {
	Name string `arg:"" optional:"" help:"Only run the hook with this name."`
}

func (cmd *stepPreMergeCmd) Run(ctx context.Context, root *rootCmd) error {
	return runHookPhase(ctx, root, "pre-merge", cmd.Name)
}

type stepPostMergeCmd struct {
	Name string `arg:"" optional:"" help:"Only run the hook with this name."`
}

func (cmd *stepPostMergeCmd) Run(ctx context.Context, root *rootCmd) error {
	return runHookPhase(ctx, root, "post-merge", cmd.Name)
}

type stepPreRemoveCmd struct {
	Name string `arg:"" optional:"" help:"Only run the hook with this name."`
}

func (cmd *stepPreRemoveCmd) Run(ctx context.Context, root *rootCmd) error {
	return runHookPhase(ctx, root, "pre-remove", cmd.Name)
}

// runHookPhase runs every configured hook for phase against the
// current worktree, optionally filtered to a single hook by name, and
// exits with the failing hook's own exit code so scripts can branch on
// it the same way they would on the underlying command.
func runHookPhase(ctx context.Context, root *rootCmd, phase, name string) error {
	specs := root.hooks.ForPhase(phase)
	if name != "" {
		filtered := specs[:0:0]
		for _, s := range specs {
			if s.Name == name {
				filtered = append(filtered, s)
			}
		}
		specs = filtered
	}
	if len(specs) == 0 {
		return nil
	}

	branch, err := root.repo.CurrentBranch(ctx)
	if err != nil {
		branch = ""
	}
	dir, err := os.Getwd()
	if err != nil {
		dir = root.repo.Root()
	}

	commands := make([]hook.Command, len(specs))
	for i, s := range specs {
		commands[i] = hook.Command{Phase: phase, Name: s.Name, Shell: s.Command, Dir: dir, Branch: branch}
	}

	mode := hook.SequentialBlocking
	if phase == "post-start" || phase == "post-switch" {
		mode = hook.ParallelDetached
	}
	strategy := hook.FailFast
	if phase == "post-merge" {
		strategy = hook.Warn
	}

	err = hook.Run(ctx, root.log, root.repo.GitDir(), commands, mode, strategy)
	if failed, ok := err.(*hook.FailedError); ok {
		root.flushDirectives()
		os.Exit(failed.ExitCode)
	}
	return err
}
