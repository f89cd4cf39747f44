package main

import (
	"context"
	"fmt"

	"github.com/prassanna-ravishankar/worktrunk/internal/handler/prune"
	"github.com/prassanna-ravishankar/worktrunk/internal/ui"
)

// pruneCmd implements `wt prune`: remove worktrees (and their
// branches) already integrated into the target branch, or whose
// directory has vanished out from under git.
type pruneCmd struct {
	Target       string `help:"Integration branch; defaults to the repository's default branch."`
	ActiveBranch string `help:"Branch to never prune, even if it matches."`
	Pattern      string `help:"Only consider branches matching this glob."`
	Exclude      string `help:"Never consider branches matching this glob."`
	Force        bool   `short:"f" help:"Also prune unmerged branches, deleting with -D."`
	DryRun       bool   `help:"Report candidates without removing anything."`
	Yes          bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (cmd *pruneCmd) Run(ctx context.Context, root *rootCmd) error {
	target := cmd.Target
	if target == "" {
		branch, err := root.repo.DefaultBranch(ctx, root.remote)
		if err != nil {
			return fmt.Errorf("resolve integration branch: %w", err)
		}
		target = branch
	}

	var prompt prune.Prompter
	if !cmd.Yes && ui.Interactive(root.view) {
		prompt = &confirmer{view: root.view}
	}

	h := &prune.Handler{
		Log:        root.log,
		Repository: root.repo,
		Prompt:     prompt,
	}

	candidates, err := h.PruneWorktrees(ctx, &prune.Request{
		Target:       target,
		ActiveBranch: cmd.ActiveBranch,
		Pattern:      cmd.Pattern,
		Exclude:      cmd.Exclude,
		Force:        cmd.Force,
		DryRun:       cmd.DryRun,
		Yes:          cmd.Yes,
	})
	if err != nil {
		return err
	}
	if cmd.DryRun {
		for _, c := range candidates {
			root.log.Infof("would prune %s (%s)", c.Branch, c.Path)
		}
	}
	return nil
}
