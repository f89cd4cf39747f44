// Package prune implements worktrunk's prune command: remove
// worktrees (and their branches) that are fully integrated into the
// target branch or whose directory has already vanished.
package prune

import (
	"context"
	"fmt"
	"path"

	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

//go:generate mockgen -destination mocks_test.go -package prune -typed . GitRepository

// GitRepository is the subset of the git facade Prune needs.
type GitRepository interface {
	ListWorktrees(ctx context.Context) ([]*git.WorktreeListItem, error)
	AheadBehind(ctx context.Context, base, head string) (ahead, behind int, err error)
	WorktreeRemove(ctx context.Context, path string, opts git.WorktreeRemoveOptions) error
	DeleteBranch(ctx context.Context, branch string, opts git.BranchDeleteOptions) error
}

var _ GitRepository = (*git.Repository)(nil)

// Prompter asks the user a yes/no question. A nil Prompter is treated
// as non-interactive: Request.Yes must be set or PruneWorktrees fails
// with NotInteractiveError.
type Prompter interface {
	Confirm(title, desc string) (bool, error)
}

// NotInteractiveError indicates a confirmation was needed but stdin is
// not a terminal and --yes was not given.
type NotInteractiveError struct{}

func (e *NotInteractiveError) Error() string {
	return "refusing to prune without --yes on a non-interactive stdin"
}

// Handler implements the prune command.
type Handler struct {
	Log        *silog.Logger // required
	Repository GitRepository // required
	Prompt     Prompter      // optional; nil means non-interactive
}

// Request is a request to prune integrated or vanished worktrees.
type Request struct {
	Target         string // required, integration branch
	ActiveBranch   string // skipped unconditionally
	Pattern        string // glob on branch name; only matching branches are candidates
	Exclude        string // glob on branch name; matching branches are never candidates
	Force          bool   // also consider unmerged branches, deleted with -D
	DryRun         bool   // report candidates without removing anything
	Yes            bool   // skip the confirmation prompt
}

// Candidate is a worktree selected for pruning.
type Candidate struct {
	Path     string
	Branch   string
	Prunable bool // directory already missing, vs. integrated
}

// PruneWorktrees collects prune candidates and, unless DryRun, removes
// each one's worktree and branch.
func (h *Handler) PruneWorktrees(ctx context.Context, req *Request) ([]Candidate, error) {
	worktrees, err := h.Repository.ListWorktrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	primary := worktrees[0]

	var candidates []Candidate
	for _, wt := range worktrees[1:] {
		if wt.Branch == "" || wt.Branch == req.ActiveBranch || wt.Branch == req.Target {
			continue
		}
		if !matches(req.Pattern, req.Exclude, wt.Branch) {
			continue
		}

		if wt.Prunable {
			candidates = append(candidates, Candidate{Path: wt.Path, Branch: wt.Branch, Prunable: true})
			continue
		}

		ahead, _, err := h.Repository.AheadBehind(ctx, req.Target, wt.Branch)
		if err != nil {
			return nil, fmt.Errorf("compare %s against %s: %w", wt.Branch, req.Target, err)
		}
		switch {
		case ahead == 0:
			candidates = append(candidates, Candidate{Path: wt.Path, Branch: wt.Branch})
		case req.Force:
			candidates = append(candidates, Candidate{Path: wt.Path, Branch: wt.Branch})
		}
	}

	if len(candidates) == 0 || req.DryRun {
		return candidates, nil
	}

	if !req.Yes {
		ok, err := h.confirm(candidates)
		if err != nil {
			return candidates, err
		}
		if !ok {
			return nil, nil
		}
	}

	for _, c := range candidates {
		if c.Path != primary.Path {
			if err := h.Repository.WorktreeRemove(ctx, c.Path, git.WorktreeRemoveOptions{Force: req.Force}); err != nil {
				return candidates, fmt.Errorf("remove worktree %s: %w", c.Path, err)
			}
		}
		if err := h.Repository.DeleteBranch(ctx, c.Branch, git.BranchDeleteOptions{Force: req.Force}); err != nil {
			return candidates, fmt.Errorf("delete branch %s: %w", c.Branch, err)
		}
		h.Log.Infof("pruned %s (%s)", c.Branch, c.Path)
	}
	return candidates, nil
}

func (h *Handler) confirm(candidates []Candidate) (bool, error) {
	if h.Prompt == nil {
		return false, &NotInteractiveError{}
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Branch
	}
	return h.Prompt.Confirm(
		fmt.Sprintf("Prune %d worktree(s)?", len(candidates)),
		fmt.Sprintf("branches: %v", names),
	)
}

func matches(pattern, exclude, branch string) bool {
	if pattern != "" {
		ok, err := path.Match(pattern, branch)
		if err != nil || !ok {
			return false
		}
	}
	if exclude != "" {
		if ok, err := path.Match(exclude, branch); err == nil && ok {
			return false
		}
	}
	return true
}
