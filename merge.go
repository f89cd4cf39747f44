package main

import (
	"context"
	"fmt"

	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/merge"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/push"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/squash"
	"github.com/prassanna-ravishankar/worktrunk/internal/llm"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

// mergeCmd implements `wt merge`: integrate a branch into a target by
// committing, optionally squashing, rebasing onto the target, fast-
// forward pushing, then cleaning up the source worktree and branch.
type mergeCmd struct {
	Branch string `arg:"" help:"Branch to merge."`
	Target string `arg:"" optional:"" help:"Branch to merge into; defaults to the integration branch."`

	Squash      bool `help:"Squash the branch's commits into one before rebasing."`
	NoCommit    bool `help:"Don't auto-commit uncommitted changes in the source worktree."`
	NoRemove    bool `help:"Keep the source worktree and branch after merging."`
	NoVerify    bool `help:"Skip pre-commit/pre-merge hook verification."`
	TrackedOnly bool `help:"When auto-committing, stage only already-tracked files."`
}

func (cmd *mergeCmd) Run(ctx context.Context, root *rootCmd) error {
	target := cmd.Target
	if target == "" {
		branch, err := root.repo.DefaultBranch(ctx, root.remote)
		if err != nil {
			return fmt.Errorf("resolve integration branch: %w", err)
		}
		target = branch
	}

	repoAdapter := merge.RepositoryAdapter{Repository: root.repo}
	h := &merge.Handler{
		Log:        root.log,
		Repository: repoAdapter,
		Push: &push.Handler{
			Log:        root.log,
			Repository: push.RepositoryAdapter{Repository: root.repo},
		},
		Squash:    &lazySquasher{repo: root.repo, log: root.log, llmTool: llm.Tool(root.userCfg.LLM)},
		Directive: root.directive,
	}

	return h.MergeBranch(ctx, &merge.Request{
		Branch:      cmd.Branch,
		Target:      target,
		Squash:      cmd.Squash,
		NoCommit:    cmd.NoCommit,
		NoRemove:    cmd.NoRemove,
		NoVerify:    cmd.NoVerify,
		TrackedOnly: cmd.TrackedOnly,
	})
}

// lazySquasher satisfies merge.Squasher by resolving the worktree for
// branchName at call time, since merge.Handler (unlike a standalone
// `wt step squash`) has no worktree reference to hand it up front —
// only the branch and base names squash.Handler's own signature takes.
type lazySquasher struct {
	repo    *git.Repository
	log     *silog.Logger
	llmTool llm.Tool
}

func (s *lazySquasher) SquashBranch(ctx context.Context, branchName, baseRef string, opts *squash.Options) error {
	worktrees, err := s.repo.ListWorktrees(ctx)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}
	var path string
	for _, wt := range worktrees {
		if wt.Branch == branchName {
			path = wt.Path
			break
		}
	}
	if path == "" {
		return &git.InvalidReferenceError{Ref: branchName}
	}

	wt, err := s.repo.OpenWorktree(ctx, path)
	if err != nil {
		return fmt.Errorf("open worktree %s: %w", path, err)
	}

	h := &squash.Handler{
		Log:        s.log,
		Repository: s.repo,
		Worktree:   wt,
		LLMTool:    s.llmTool,
	}
	return h.SquashBranch(ctx, branchName, baseRef, opts)
}
