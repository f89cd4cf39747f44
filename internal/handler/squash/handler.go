// Package squash implements worktrunk's squash step: collapse every
// commit between a base and a branch's HEAD into a single commit.
package squash

import (
	"context"
	"errors"
	"fmt"

	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/llm"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

//go:generate mockgen -destination mocks_test.go -package squash -typed . GitRepository,GitWorktree

// GitRepository provides repository-wide read/write access.
type GitRepository interface {
	CommitSubjects(ctx context.Context, base, head string) ([]string, error)
	SetRef(ctx context.Context, req git.SetRefRequest) error
}

var _ GitRepository = (*git.Repository)(nil)

// GitWorktree provides worktree-specific operations.
type GitWorktree interface {
	DetachHead(ctx context.Context, commitish string) error
	Checkout(ctx context.Context, branch string) error
	Reset(ctx context.Context, commit string, opts git.ResetOptions) error
	Commit(ctx context.Context, req git.CommitRequest) error
	Head(ctx context.Context) (git.Hash, error)
}

var _ GitWorktree = (*git.Worktree)(nil)

// Handler squashes a branch's commits into one.
type Handler struct {
	Log        *silog.Logger // required
	Repository GitRepository // required
	Worktree   GitWorktree   // required
	LLMTool    llm.Tool      // optional; empty Command means deterministic fallback only
}

// Options configures SquashBranch.
type Options struct {
	Message  string // explicit message; if empty, one is generated
	NoVerify bool
}

// SquashBranch resets branchName to baseRef and recommits its entire
// diff as a single commit, updating the branch ref with a
// compare-and-swap against its current head.
func (h *Handler) SquashBranch(ctx context.Context, branchName, baseRef string, opts *Options) (err error) {
	if opts == nil {
		opts = &Options{}
	}

	oldHead, err := h.Worktree.Head(ctx)
	if err != nil {
		return fmt.Errorf("resolve current HEAD: %w", err)
	}

	message := opts.Message
	if message == "" {
		subjects, err := h.Repository.CommitSubjects(ctx, baseRef, branchName)
		if err != nil {
			return fmt.Errorf("list commit subjects: %w", err)
		}
		message = llm.SquashMessage(ctx, h.Log, h.LLMTool, baseRef, subjects)
	}

	// Detach HEAD so a failure mid-operation doesn't leave branchName
	// pointing at a half-finished squash.
	if err := h.Worktree.DetachHead(ctx, branchName); err != nil {
		return fmt.Errorf("detach HEAD: %w", err)
	}
	var reattached bool
	defer func() {
		if !reattached {
			if cerr := h.Worktree.Checkout(ctx, branchName); cerr != nil {
				h.Log.Errorf("could not check out %s after failed squash: %v", branchName, cerr)
				err = errors.Join(err, cerr)
			}
		}
	}()

	if err := h.Worktree.Reset(ctx, baseRef, git.ResetOptions{Mode: git.ResetSoft}); err != nil {
		return fmt.Errorf("reset to base: %w", err)
	}

	if err := h.Worktree.Commit(ctx, git.CommitRequest{Message: message, NoVerify: opts.NoVerify}); err != nil {
		return fmt.Errorf("commit squashed changes: %w", err)
	}

	newHead, err := h.Worktree.Head(ctx)
	if err != nil {
		return fmt.Errorf("resolve squashed HEAD: %w", err)
	}

	if err := h.Repository.SetRef(ctx, git.SetRefRequest{
		Ref:     "refs/heads/" + branchName,
		Hash:    newHead,
		OldHash: oldHead,
	}); err != nil {
		return fmt.Errorf("update branch ref: %w", err)
	}

	if err := h.Worktree.Checkout(ctx, branchName); err != nil {
		return fmt.Errorf("checkout %s: %w", branchName, err)
	}
	reattached = true
	h.Log.Infof("squashed %s onto a single commit", branchName)
	return nil
}
