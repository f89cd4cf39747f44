package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/prassanna-ravishankar/worktrunk/internal/execedit"
)

// configCmd groups the user config inspection/editing subcommands.
type configCmd struct {
	Path configPathCmd `cmd:"" help:"Print the user config file's path."`
	Edit configEditCmd `cmd:"" help:"Open the user config file in $EDITOR."`
	Set  configSetCmd  `cmd:"" help:"Set a config value, e.g. experiments.<name> true."`
}

// configPathCmd implements `wt config path`.
type configPathCmd struct{}

func (cmd *configPathCmd) Run(ctx context.Context, root *rootCmd) error {
	fmt.Println(root.userCfg.Path())
	return nil
}

// configEditCmd implements `wt config edit`, opening the user config
// file in $EDITOR, falling back to $VISUAL and then to vi.
type configEditCmd struct{}

func (cmd *configEditCmd) Run(ctx context.Context, root *rootCmd) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}
	return execedit.Command(editor, root.userCfg.Path()).Run()
}

// configSetCmd implements `wt config set experiments.<name> <bool>`,
// the only writable config path exposed on the CLI (everything else
// in the user config is written by the approval ledger or by hand).
type configSetCmd struct {
	Key   string `arg:"" help:"Config key, e.g. experiments.squash-llm."`
	Value string `arg:"" help:"Value to set."`
}

func (cmd *configSetCmd) Run(ctx context.Context, root *rootCmd) error {
	name, ok := experimentKey(cmd.Key)
	if !ok {
		return fmt.Errorf("unsupported config key %q (expected experiments.<name>)", cmd.Key)
	}
	enabled, err := strconv.ParseBool(cmd.Value)
	if err != nil {
		return fmt.Errorf("parse value %q as bool: %w", cmd.Value, err)
	}
	return root.userCfg.SetExperiment(name, enabled)
}

func experimentKey(key string) (name string, ok bool) {
	const prefix = "experiments."
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		return "", false
	}
	return key[len(prefix):], true
}
