// Package delete implements worktrunk's remove command: delete a
// worktree and, once it is gone, the branch it held.
package delete

import (
	"context"
	"errors"
	"fmt"

	"github.com/prassanna-ravishankar/worktrunk/internal/config"
	"github.com/prassanna-ravishankar/worktrunk/internal/directive"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/hook"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

//go:generate mockgen -destination mocks_test.go -package delete -typed . GitRepository

// GitRepository is the subset of the git facade Remove needs.
type GitRepository interface {
	ListWorktrees(ctx context.Context) ([]*git.WorktreeListItem, error)
	OpenWorktree(ctx context.Context, dir string) (*git.Worktree, error)
	WorktreeRemove(ctx context.Context, path string, opts git.WorktreeRemoveOptions) error
	DeleteBranch(ctx context.Context, branch string, opts git.BranchDeleteOptions) error
	Root() string
}

var _ GitRepository = (*git.Repository)(nil)

// Handler implements the remove command.
type Handler struct {
	Log        *silog.Logger // required
	Repository GitRepository // required
	Hooks      config.Hooks
	Directive  *directive.Writer // required
}

// Request is a request to remove a worktree (and the branch it held).
type Request struct {
	Branch       string // defaults to the current worktree's branch if empty
	Force        bool   // remove even with uncommitted changes
	ForceDelete  bool   // -D instead of -d when deleting the branch
	CurrentPath  string // absolute path of the worktree the command was invoked from
}

// RemoveWorktree deletes the worktree holding Branch (or, if Branch is
// empty, the current worktree), then deletes the branch itself.
func (h *Handler) RemoveWorktree(ctx context.Context, req *Request) error {
	worktrees, err := h.Repository.ListWorktrees(ctx)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}

	primary := worktrees[0]
	target, err := findTarget(worktrees, req.Branch, req.CurrentPath)
	if err != nil {
		return err
	}

	if target.Path == primary.Path {
		return &git.CannotRemoveMainWorktreeError{Path: target.Path}
	}

	wt, err := h.Repository.OpenWorktree(ctx, target.Path)
	if err != nil {
		return fmt.Errorf("open worktree %s: %w", target.Path, err)
	}

	if !req.Force {
		status, err := wt.StatusPorcelain(ctx)
		if err != nil {
			return fmt.Errorf("check working tree status: %w", err)
		}
		if status.Dirty {
			return &git.UncommittedChangesError{Action: "remove", Worktree: target.Path}
		}
	}

	removingCurrent := req.CurrentPath != "" && target.Path == req.CurrentPath
	if removingCurrent {
		h.Directive.CD(primary.Path)
	}

	if cmds := h.Hooks.ForPhase("pre-remove"); len(cmds) > 0 {
		commands := make([]hook.Command, len(cmds))
		for i, c := range cmds {
			commands[i] = hook.Command{Phase: "pre-remove", Name: c.Name, Shell: c.Command, Dir: target.Path, Branch: target.Branch}
		}
		if err := hook.Run(ctx, h.Log, h.Repository.Root(), commands, hook.SequentialBlocking, hook.FailFast); err != nil {
			return err
		}
	}

	if err := h.Repository.WorktreeRemove(ctx, target.Path, git.WorktreeRemoveOptions{Force: req.Force}); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	h.Log.Infof("removed worktree %s", target.Path)

	if target.Branch == "" {
		return nil // detached worktree, no branch to delete
	}

	opts := git.BranchDeleteOptions{Force: req.ForceDelete}
	if err := h.Repository.DeleteBranch(ctx, target.Branch, opts); err != nil {
		return fmt.Errorf("delete branch %s: %w", target.Branch, err)
	}
	h.Log.Infof("deleted branch %s", target.Branch)
	return nil
}

func findTarget(worktrees []*git.WorktreeListItem, branch, currentPath string) (*git.WorktreeListItem, error) {
	if branch != "" {
		for _, wt := range worktrees {
			if wt.Branch == branch {
				return wt, nil
			}
		}
		return nil, &git.InvalidReferenceError{Ref: branch}
	}
	if currentPath != "" {
		for _, wt := range worktrees {
			if wt.Path == currentPath {
				return wt, nil
			}
		}
	}
	return nil, errors.New("could not determine which worktree to remove")
}
