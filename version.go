package main

import (
	"context"
	"fmt"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// versionCmd implements `wt version`.
type versionCmd struct{}

func (cmd *versionCmd) Run(ctx context.Context) error {
	fmt.Println(version)
	return nil
}
