package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"github.com/prassanna-ravishankar/worktrunk/internal/ci"
	"github.com/prassanna-ravishankar/worktrunk/internal/cli/experiment"
	"github.com/prassanna-ravishankar/worktrunk/internal/config"
	"github.com/prassanna-ravishankar/worktrunk/internal/directive"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/ledger"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
	"github.com/prassanna-ravishankar/worktrunk/internal/ui"
)

// rootCmd is the `wt` entry point: global flags plus one field per
// subcommand, following the teacher's single-binary, Kong-driven
// layout. Its AfterApply bootstraps everything subcommands share —
// logger, repository handle, config, directive writer, CI providers,
// and the interactive view — the same BindToProvider-style
// composition the teacher uses for its own command tree, just
// assembled by hand here since every Run method below takes *rootCmd
// directly instead of a handful of separately bound singletons.
type rootCmd struct {
	experiment.Check

	Verbose  int  `short:"v" type:"counter" help:"Increase log verbosity."`
	Internal bool `hidden:"" help:"Write shell directives to WT_DIRECTIVE_FILE instead of printing interactively."`
	NoColor  bool `name:"no-color" help:"Disable colored output."`

	List       listCmd       `cmd:"" help:"List worktrees and branches."`
	Statusline statuslineCmd `cmd:"" name:"statusline" help:"Print a one-line status summary for shell prompts."`
	Switch     switchCmd     `cmd:"" help:"Switch to (or create) a worktree for a branch."`
	Remove     removeCmd     `cmd:"" help:"Remove a worktree and its branch."`
	Push       pushCmd       `cmd:"" help:"Fast-forward a target worktree to a source branch."`
	Merge      mergeCmd      `cmd:"" help:"Integrate a branch into a target and clean it up."`
	Prune      pruneCmd      `cmd:"" help:"Remove integrated or vanished worktrees."`
	Step       stepCmd       `cmd:"" help:"Run one step of worktrunk's mutation engine directly."`
	Shell      shellCmd      `cmd:"" help:"Print a shell wrapper function."`
	Completion completionCmd `cmd:"" help:"Print a shell completion script."`
	Config     configCmd     `cmd:"" help:"Inspect or edit worktrunk configuration."`
	Version    versionCmd    `cmd:"" help:"Print the worktrunk version."`

	repo      *git.Repository
	log       *silog.Logger
	userCfg   *config.Store
	hooks     config.Hooks
	directive *directive.Writer
	view      ui.View
	ciProv    []ci.Provider
	projectID string
	remote    string
}

// AfterApply runs once, after Kong parses the command line but before
// any subcommand's Run, populating every field subcommands read.
func (c *rootCmd) AfterApply(kctx *kong.Context) error {
	var style *silog.Style
	switch {
	case c.NoColor || os.Getenv("NO_COLOR") != "":
		style = silog.PlainStyle()
	case os.Getenv("CLICOLOR_FORCE") != "":
		style = silog.DefaultStyle()
	}
	level := silog.LevelInfo
	if c.Verbose > 0 {
		level = silog.LevelDebug
	}
	log := silog.New(os.Stderr, &silog.Options{Level: level, Style: style})
	c.log = log

	repo, err := git.Open(context.Background(), "", git.OpenOptions{Log: log})
	if err != nil {
		return fmt.Errorf("open git repository: %w", err)
	}
	c.repo = repo

	userCfg, err := config.LoadUser()
	if err != nil {
		return fmt.Errorf("load user config: %w", err)
	}
	c.userCfg = userCfg

	if err := c.Check.AfterApply(kctx, log, userCfg); err != nil {
		return err
	}

	hooks, err := config.LoadProject(repo.Root())
	if err != nil {
		return fmt.Errorf("load project config: %w", err)
	}
	c.hooks = hooks

	if c.Internal {
		c.directive = directive.Open()
	} else {
		c.directive = directive.Discard()
	}

	remote, err := repo.PrimaryRemote(context.Background())
	if err != nil {
		remote = ""
	}
	c.remote = remote

	c.projectID = repo.Root()
	if remoteURL, err := repo.RemoteURL(context.Background(), remote); err == nil {
		if id, ok := ledger.ProjectID(remoteURL); ok {
			c.projectID = id
		}
	}

	c.ciProv = buildCIProviders(log)

	if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd()) {
		c.view = &ui.TerminalView{R: os.Stdin, W: os.Stderr}
	} else {
		c.view = &ui.FileView{W: os.Stderr}
	}

	return nil
}

// buildCIProviders registers a provider only for CLIs actually present
// on PATH, per the "first success wins" probe order from the behavior
// spec: github first, then gitlab.
func buildCIProviders(log *silog.Logger) []ci.Provider {
	var providers []ci.Provider
	if _, err := exec.LookPath("gh"); err == nil {
		providers = append(providers, ci.NewCachingProvider(&ci.GitHubProvider{GH: "gh", Log: log}))
	}
	if _, err := exec.LookPath("glab"); err == nil {
		providers = append(providers, ci.NewCachingProvider(&ci.GitLabProvider{GL: "glab", Log: log}))
	}
	return providers
}

// flushDirectives writes accumulated CD/EXEC directives to the shell
// wrapper's file, or, when invoked outside the wrapper, prints the
// pending effects to stdout instead of silently dropping them.
func (c *rootCmd) flushDirectives() {
	if c.directive == nil {
		return
	}

	err := c.directive.Flush()
	if err == nil {
		return
	}
	if !errors.Is(err, directive.ErrNoDirectiveFile) {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	records := c.directive.Records()
	if len(records) == 0 {
		return
	}
	stream := []byte(strings.Join(records, "\x00") + "\x00")
	directive.Dispatch(stream,
		func(path string) { fmt.Printf("cd %s\n", path) },
		func(fragment string) { fmt.Println(fragment) },
	)
}
