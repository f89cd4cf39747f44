// Command wt manages git worktrees: creating, switching between,
// merging, and pruning them, with hooks and shell integration so a
// worktree feels like a lightweight branch switch rather than a
// separate checkout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/prassanna-ravishankar/worktrunk/internal/cli/shorthand"
	"github.com/prassanna-ravishankar/worktrunk/internal/komplete"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var cmd rootCmd
	parser, err := kong.New(&cmd,
		kong.Name("wt"),
		kong.Description("Manage git worktrees with hooks and shell integration."),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(&cmd),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	komplete.Run(parser, komplete.WithPredictor("branches", branchPredictor))

	args := os.Args[1:]
	if src, err := shorthand.NewBuiltin(parser.Model); err == nil {
		args = shorthand.Expand(src, args)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.FatalIfErrorf(err)
		return
	}

	runErr := kctx.Run()
	cmd.flushDirectives()
	kctx.FatalIfErrorf(runErr)
}
