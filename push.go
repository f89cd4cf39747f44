package main

import (
	"context"
	"fmt"

	"github.com/prassanna-ravishankar/worktrunk/internal/handler/push"
)

// pushCmd implements `wt push`: fast-forward a target worktree's
// branch to match a source branch's HEAD, entirely locally.
type pushCmd struct {
	Target            string `arg:"" optional:"" help:"Branch to fast-forward; defaults to the integration branch."`
	Source            string `help:"Branch to push from; defaults to the current worktree's branch."`
	AllowMergeCommits bool   `help:"Allow fast-forwarding across merge commits."`
}

func (cmd *pushCmd) Run(ctx context.Context, root *rootCmd) error {
	source := cmd.Source
	if source == "" {
		branch, err := root.repo.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("resolve current branch: %w", err)
		}
		source = branch
	}

	target := cmd.Target
	if target == "" {
		branch, err := root.repo.DefaultBranch(ctx, root.remote)
		if err != nil {
			return fmt.Errorf("resolve integration branch: %w", err)
		}
		target = branch
	}

	h := &push.Handler{
		Log:        root.log,
		Repository: push.RepositoryAdapter{Repository: root.repo},
	}
	return h.PushBranch(ctx, &push.Request{
		Source:            source,
		Target:            target,
		AllowMergeCommits: cmd.AllowMergeCommits,
	})
}
