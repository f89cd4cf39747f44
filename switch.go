package main

import (
	"context"

	"github.com/prassanna-ravishankar/worktrunk/internal/handler/checkout"
)

// switchCmd implements `wt switch`: reuse, create, or DWIM-recover the
// worktree for a branch, then hand the shell wrapper a CD directive.
type switchCmd struct {
	Branch string `arg:"" help:"Branch to switch to."`

	Create   bool     `short:"c" help:"Create the branch if it doesn't exist."`
	Base     string   `help:"Base branch for --create; defaults to the integration branch."`
	Execute  string   `short:"x" help:"Command template to run (via the shell wrapper) after switching."`
	Args     []string `arg:"" optional:"" help:"Arguments to pass to --execute."`
	NoVerify bool     `help:"Skip hook confirmation and execution."`
}

func (cmd *switchCmd) Run(ctx context.Context, root *rootCmd) error {
	h := &checkout.Handler{
		Log:                  root.log,
		Repository:           root.repo,
		Hooks:                root.hooks,
		Approvals:            root.userCfg,
		Confirm:              &confirmer{view: root.view},
		Directive:            root.directive,
		ProjectID:            root.projectID,
		WorktreePathTemplate: root.userCfg.WorktreePathTemplate,
		Remote:               root.remote,
	}
	return h.SwitchBranch(ctx, &checkout.Request{
		Branch:   cmd.Branch,
		Create:   cmd.Create,
		Base:     cmd.Base,
		Execute:  cmd.Execute,
		Args:     cmd.Args,
		NoVerify: cmd.NoVerify,
	})
}
