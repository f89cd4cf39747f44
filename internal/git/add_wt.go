package git

import (
	"context"
	"fmt"
)

// AddAll stages every tracked and untracked change in the worktree,
// via `git add -A`.
func (w *Worktree) AddAll(ctx context.Context) error {
	if err := w.gitCmd(ctx, "add", "-A").Run(w.exec); err != nil {
		return fmt.Errorf("git add -A: %w", err)
	}
	return nil
}
