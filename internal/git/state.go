package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// OperationState reports whether the worktree is in the middle of a
// rebase or merge, detected from the presence of the usual marker
// files/directories inside the worktree's Git directory:
// rebase-merge/ or rebase-apply/ for a rebase, MERGE_HEAD for a merge.
// Rebase takes priority over merge. A cherry-pick is not reported
// here; see CherryPickInProgress.
func (w *Worktree) OperationState(ctx context.Context) (GitOperation, error) {
	if _, err := w.RebaseState(ctx); err == nil {
		return GitOperationRebase, nil
	} else if !errors.Is(err, ErrNoRebase) {
		return GitOperationNone, err
	}

	if w.hasGitFile("MERGE_HEAD") {
		return GitOperationMerge, nil
	}

	return GitOperationNone, nil
}

// hasGitFile reports whether name exists directly under the
// worktree's Git directory.
func (w *Worktree) hasGitFile(name string) bool {
	_, err := os.Stat(filepath.Join(w.gitDir, name))
	return err == nil
}

// CherryPickInProgress reports whether a cherry-pick is currently
// paused on a conflict, via CHERRY_PICK_HEAD.
func (w *Worktree) CherryPickInProgress() bool {
	return w.hasGitFile("CHERRY_PICK_HEAD")
}
