// Package push implements worktrunk's push command: fast-forward a
// target worktree's branch to match a source branch's HEAD, without
// touching any remote.
package push

import (
	"context"
	"fmt"
	"iter"
	"os"
	"time"

	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

//go:generate mockgen -destination mocks_test.go -package push -typed . GitRepository,GitWorktree

// GitWorktree is the subset of the git facade Push needs against a
// single worktree (source or target).
type GitWorktree interface {
	Head(ctx context.Context) (git.Hash, error)
	StatusPorcelain(ctx context.Context) (git.WorkingTreeStatus, error)
	DiffWork(ctx context.Context) iter.Seq2[git.FileStatus, error]
	StashCreate(ctx context.Context, message string) (git.Hash, error)
	StashApply(ctx context.Context, stash string) error
	Reset(ctx context.Context, commit string, opts git.ResetOptions) error
}

var _ GitWorktree = (*git.Worktree)(nil)

// GitRepository is the subset of the git facade Push needs against the
// repository as a whole. OpenWorktree returns GitWorktree (not the
// concrete *git.Worktree) so fakes can stand in for a worktree in
// tests; RepositoryAdapter wires the real git.Repository through.
type GitRepository interface {
	ListWorktrees(ctx context.Context) ([]*git.WorktreeListItem, error)
	OpenWorktree(ctx context.Context, dir string) (GitWorktree, error)
	IsAncestor(ctx context.Context, ancestor, descendant git.Hash) bool
	MergeCommits(ctx context.Context, base, head string) ([]string, error)
	DiffTree(ctx context.Context, treeish1, treeish2 string) iter.Seq2[git.FileStatus, error]
}

// RepositoryAdapter adapts *git.Repository to GitRepository.
type RepositoryAdapter struct {
	*git.Repository
}

// OpenWorktree opens the worktree at dir, widening the concrete
// *git.Worktree to the GitWorktree interface.
func (a RepositoryAdapter) OpenWorktree(ctx context.Context, dir string) (GitWorktree, error) {
	return a.Repository.OpenWorktree(ctx, dir)
}

var _ GitRepository = RepositoryAdapter{}

// Handler implements the push command: a local, worktree-to-worktree
// fast-forward integration.
type Handler struct {
	Log        *silog.Logger // required
	Repository GitRepository // required
}

// Request is a request to fast-forward Target's worktree to Source's
// current HEAD.
type Request struct {
	Source            string // required, branch to push from
	Target            string // required, branch to fast-forward
	AllowMergeCommits bool
}

// PushBranch fast-forwards req.Target's worktree to req.Source's HEAD.
func (h *Handler) PushBranch(ctx context.Context, req *Request) error {
	worktrees, err := h.Repository.ListWorktrees(ctx)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}

	sourceItem, err := findByBranch(worktrees, req.Source)
	if err != nil {
		return err
	}
	targetItem, err := findByBranch(worktrees, req.Target)
	if err != nil {
		return err
	}

	sourceWt, err := h.Repository.OpenWorktree(ctx, sourceItem.Path)
	if err != nil {
		return fmt.Errorf("open source worktree %s: %w", sourceItem.Path, err)
	}
	targetWt, err := h.Repository.OpenWorktree(ctx, targetItem.Path)
	if err != nil {
		return fmt.Errorf("open target worktree %s: %w", targetItem.Path, err)
	}

	sourceHead, err := sourceWt.Head(ctx)
	if err != nil {
		return fmt.Errorf("resolve %s HEAD: %w", req.Source, err)
	}
	targetHead, err := targetWt.Head(ctx)
	if err != nil {
		return fmt.Errorf("resolve %s HEAD: %w", req.Target, err)
	}

	if !h.Repository.IsAncestor(ctx, targetHead, sourceHead) {
		return &git.NotFastForwardError{Target: req.Target, BlockingCommit: targetHead.String()}
	}

	if !req.AllowMergeCommits {
		merges, err := h.Repository.MergeCommits(ctx, targetHead.String(), sourceHead.String())
		if err != nil {
			return fmt.Errorf("check for merge commits: %w", err)
		}
		if len(merges) > 0 {
			return &git.MergeCommitsFoundError{Commits: merges}
		}
	}

	status, err := targetWt.StatusPorcelain(ctx)
	if err != nil {
		return fmt.Errorf("check target working tree status: %w", err)
	}

	var stash git.Hash
	if status.Dirty {
		changed, err := pushedFiles(h.Repository, ctx, targetHead.String(), sourceHead.String())
		if err != nil {
			return err
		}
		dirty, err := dirtyFiles(targetWt, ctx)
		if err != nil {
			return err
		}
		if overlap := intersect(changed, dirty); len(overlap) > 0 {
			return &git.ConflictingChangesError{Files: overlap, Worktree: targetItem.Path}
		}

		message := fmt.Sprintf("worktrunk: autostash before push (pid %d, %d)", os.Getpid(), time.Now().UnixNano())
		stash, err = targetWt.StashCreate(ctx, message)
		if err != nil {
			return fmt.Errorf("stash target worktree changes: %w", err)
		}
	}

	if err := targetWt.Reset(ctx, sourceHead.String(), git.ResetOptions{Mode: git.ResetHard}); err != nil {
		return fmt.Errorf("fast-forward %s to %s: %w", req.Target, req.Source, err)
	}
	h.Log.Infof("fast-forwarded %s to %s (%s)", req.Target, req.Source, sourceHead)

	if stash != "" {
		if err := targetWt.StashApply(ctx, stash.String()); err != nil {
			h.Log.Errorf("could not reapply stashed changes: %v; recover them with 'git stash apply %s' in %s", err, stash, targetItem.Path)
			return fmt.Errorf("reapply stashed changes: %w", err)
		}
	}
	return nil
}

func findByBranch(worktrees []*git.WorktreeListItem, branch string) (*git.WorktreeListItem, error) {
	for _, wt := range worktrees {
		if wt.Branch == branch {
			return wt, nil
		}
	}
	return nil, &git.InvalidReferenceError{Ref: branch}
}

func pushedFiles(repo GitRepository, ctx context.Context, base, head string) ([]string, error) {
	var files []string
	for fs, err := range repo.DiffTree(ctx, base, head) {
		if err != nil {
			return nil, fmt.Errorf("diff %s..%s: %w", base, head, err)
		}
		files = append(files, fs.Path)
	}
	return files, nil
}

func dirtyFiles(wt GitWorktree, ctx context.Context) ([]string, error) {
	var files []string
	for fs, err := range wt.DiffWork(ctx) {
		if err != nil {
			return nil, fmt.Errorf("diff working tree: %w", err)
		}
		files = append(files, fs.Path)
	}
	return files, nil
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, f := range a {
		set[f] = true
	}
	var out []string
	for _, f := range b {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}
