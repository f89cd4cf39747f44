package main

import (
	"context"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"

	"github.com/prassanna-ravishankar/worktrunk/internal/handler/list"
)

// listCmd implements `wt list`: enrich every worktree (and optionally
// every untracked local branch) with git metadata and render it as a
// table or JSON.
type listCmd struct {
	Branches bool `short:"b" help:"Also list local branches without a worktree."`
	Full     bool `help:"Show full diffstat columns."`
	JSON     bool `help:"Emit machine-readable JSON instead of a table."`
}

func (cmd *listCmd) Run(ctx context.Context, root *rootCmd) error {
	h := &list.Handler{
		Log:         root.log,
		Repository:  root.repo,
		Enrich:      list.NewEnricher(root.repo),
		CIProviders: root.ciProv,
	}

	currentPath, _ := os.Getwd()
	isTTY := isatty.IsTerminal(os.Stdout.Fd())
	width := 0
	if isTTY {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}

	return h.ListWorktrees(ctx, &list.Request{
		ShowBranches: cmd.Branches,
		Full:         cmd.Full,
		JSON:         cmd.JSON,
		CurrentPath:  currentPath,
		Stdout:       os.Stdout,
		IsTTY:        isTTY,
		Width:        width,
	})
}

// statuslineCmd implements `wt statusline`: a single-line summary of
// the invoking worktree, meant for shell prompt integration.
type statuslineCmd struct{}

func (cmd *statuslineCmd) Run(ctx context.Context, root *rootCmd) error {
	h := &list.Handler{
		Log:         root.log,
		Repository:  root.repo,
		Enrich:      list.NewEnricher(root.repo),
		CIProviders: root.ciProv,
	}

	currentPath, _ := os.Getwd()
	return h.StatusLine(ctx, &list.StatusLineRequest{
		CurrentPath: currentPath,
		Stdout:      os.Stdout,
	})
}
