// Package merge implements worktrunk's merge command: integrate a
// branch into a target by committing, optionally squashing, rebasing
// onto the target, fast-forward pushing, then cleaning up the source
// worktree and branch.
package merge

import (
	"context"
	"fmt"

	"github.com/prassanna-ravishankar/worktrunk/internal/directive"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/push"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/squash"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

//go:generate mockgen -destination mocks_test.go -package merge -typed . GitRepository,GitWorktree,Pusher,Squasher

// GitRepository is the subset of the git facade Merge needs at the
// repository level. OpenWorktree returns GitWorktree (not the concrete
// *git.Worktree) so fakes can stand in for a worktree in tests;
// RepositoryAdapter wires the real git.Repository through.
type GitRepository interface {
	ListWorktrees(ctx context.Context) ([]*git.WorktreeListItem, error)
	OpenWorktree(ctx context.Context, dir string) (GitWorktree, error)
	DeleteBranch(ctx context.Context, branch string, opts git.BranchDeleteOptions) error
	WorktreeRemove(ctx context.Context, path string, opts git.WorktreeRemoveOptions) error
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

// GitWorktree is the subset of the git facade Merge needs against the
// source worktree.
type GitWorktree interface {
	StatusPorcelain(ctx context.Context) (git.WorkingTreeStatus, error)
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, req git.CommitRequest) error
	Rebase(ctx context.Context, req git.RebaseRequest) error
}

var _ GitWorktree = (*git.Worktree)(nil)

// Pusher performs the fast-forward push sub-step.
type Pusher interface {
	PushBranch(ctx context.Context, req *push.Request) error
}

var _ Pusher = (*push.Handler)(nil)

// Squasher performs the squash sub-step.
type Squasher interface {
	SquashBranch(ctx context.Context, branchName, baseRef string, opts *squash.Options) error
}

var _ Squasher = (*squash.Handler)(nil)

// Handler orchestrates the merge command's five sub-operations.
type Handler struct {
	Log        *silog.Logger     // required
	Repository GitRepository     // required
	Push       Pusher            // required
	Squash     Squasher          // required
	Directive  *directive.Writer // required
}

// Request is a request to merge Branch into Target.
type Request struct {
	Branch      string // required, source branch
	Target      string // required, integration branch by default (resolved by caller)
	Squash      bool
	NoCommit    bool
	NoRemove    bool
	NoVerify    bool
	TrackedOnly bool
}

// MergeBranch runs commit → squash → rebase → push → cleanup.
func (h *Handler) MergeBranch(ctx context.Context, req *Request) error {
	worktrees, err := h.Repository.ListWorktrees(ctx)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}
	source, err := findByBranch(worktrees, req.Branch)
	if err != nil {
		return err
	}

	sourceWt, err := h.Repository.OpenWorktree(ctx, source.Path)
	if err != nil {
		return fmt.Errorf("open source worktree %s: %w", source.Path, err)
	}

	if !req.NoCommit {
		if err := h.commitIfDirty(ctx, sourceWt, req); err != nil {
			return err
		}
	}

	if req.Squash {
		if err := h.Squash.SquashBranch(ctx, req.Branch, req.Target, &squash.Options{NoVerify: req.NoVerify}); err != nil {
			return fmt.Errorf("squash %s: %w", req.Branch, err)
		}
	}

	if err := sourceWt.Rebase(ctx, git.RebaseRequest{Branch: req.Branch, Upstream: req.Target, Onto: req.Target}); err != nil {
		return fmt.Errorf("rebase %s onto %s: %w", req.Branch, req.Target, err)
	}

	if err := h.Push.PushBranch(ctx, &push.Request{Source: req.Branch, Target: req.Target}); err != nil {
		return fmt.Errorf("push %s to %s: %w", req.Branch, req.Target, err)
	}
	h.Log.Infof("merged %s into %s", req.Branch, req.Target)
	h.Directive.CD(worktrees[0].Path)

	if req.NoRemove {
		return nil
	}

	if err := h.Repository.WorktreeRemove(ctx, source.Path, git.WorktreeRemoveOptions{}); err != nil {
		return fmt.Errorf("remove worktree %s: %w", source.Path, err)
	}
	// -d, never -D: if a commit lands on the source branch after the
	// push above but before this delete, the safe delete refuses and
	// surfaces that race instead of silently discarding the commit.
	if err := h.Repository.DeleteBranch(ctx, req.Branch, git.BranchDeleteOptions{Force: false}); err != nil {
		return fmt.Errorf("delete branch %s: %w", req.Branch, err)
	}
	h.Log.Infof("removed worktree and branch %s", req.Branch)
	return nil
}

func (h *Handler) commitIfDirty(ctx context.Context, wt GitWorktree, req *Request) error {
	status, err := wt.StatusPorcelain(ctx)
	if err != nil {
		return fmt.Errorf("check working tree status: %w", err)
	}
	if !status.Dirty {
		return nil
	}
	if !req.TrackedOnly {
		if err := wt.AddAll(ctx); err != nil {
			return fmt.Errorf("stage changes: %w", err)
		}
	}
	if err := wt.Commit(ctx, git.CommitRequest{
		All:      true,
		Message:  fmt.Sprintf("wip: changes on %s", req.Branch),
		NoVerify: req.NoVerify,
	}); err != nil {
		return fmt.Errorf("commit dirty changes: %w", err)
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
