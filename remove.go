package main

import (
	"context"
	"os"

	"github.com/prassanna-ravishankar/worktrunk/internal/handler/delete"
)

// removeCmd implements `wt remove`: delete a worktree and the branch
// it held, defaulting to the worktree the command was invoked from.
type removeCmd struct {
	Branch      string `arg:"" optional:"" help:"Branch whose worktree to remove; defaults to the current worktree."`
	Force       bool   `short:"f" help:"Remove even with uncommitted changes."`
	ForceDelete bool   `short:"D" help:"Delete the branch with -D even if unmerged."`
}

func (cmd *removeCmd) Run(ctx context.Context, root *rootCmd) error {
	h := &delete.Handler{
		Log:        root.log,
		Repository: root.repo,
		Hooks:      root.hooks,
		Directive:  root.directive,
	}

	currentPath, err := os.Getwd()
	if err != nil {
		currentPath = ""
	}
	return h.RemoveWorktree(ctx, &delete.Request{
		Branch:      cmd.Branch,
		Force:       cmd.Force,
		ForceDelete: cmd.ForceDelete,
		CurrentPath: currentPath,
	})
}
