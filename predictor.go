package main

import (
	"context"

	"github.com/posener/complete"

	"github.com/prassanna-ravishankar/worktrunk/internal/git"
)

// branchPredictorT completes branch and worktree names for arguments
// tagged `predictor:"branches"`. It opens its own repository handle
// rather than reaching into rootCmd, since shell completion runs
// before Kong (and therefore rootCmd.AfterApply) ever parses the
// command line.
type branchPredictorT struct{}

var branchPredictor = branchPredictorT{}

var _ complete.Predictor = branchPredictorT{}

func (branchPredictorT) Predict(complete.Args) []string {
	ctx := context.Background()
	repo, err := git.Open(ctx, "", git.OpenOptions{})
	if err != nil {
		return nil
	}

	worktrees, err := repo.ListWorktrees(ctx)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(worktrees))
	for _, wt := range worktrees {
		if wt.Branch != "" {
			names = append(names, wt.Branch)
		}
	}

	if locals, err := repo.LocalBranches(ctx); err == nil {
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			seen[n] = true
		}
		for _, b := range locals {
			if !seen[b] {
				names = append(names, b)
				seen[b] = true
			}
		}
	}
	return names
}
