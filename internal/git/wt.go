package git

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/prassanna-ravishankar/worktrunk/internal/scanutil"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

// Worktree is a checkout of a Git repository at a specific path.
// Operations that require a working tree (e.g. branch checkout, rebase, etc.)
// are only available on the worktree.
type Worktree struct {
	gitDir  string // absolute path to wt's .git directory
	rootDir string // absolute path to the root directory of the worktree
	repo    *Repository

	log  *silog.Logger
	exec execer
}

func newWorktree(gitDir, rootDir string, repo *Repository, log *silog.Logger, exec execer) *Worktree {
	return &Worktree{
		gitDir:  gitDir,
		rootDir: rootDir,
		repo:    repo,
		log:     log,
		exec:    exec,
	}
}

func (w *Worktree) gitCmd(ctx context.Context, args ...string) *gitCmd {
	return newGitCmd(ctx, w.log, args...).Dir(w.rootDir)
}

// RootDir returns the absolute path to the root directory of the worktree.
func (w *Worktree) RootDir() string {
	return w.rootDir
}

// Repository returns the Git repository that this worktree belongs to.
func (w *Worktree) Repository() *Repository {
	return w.repo
}

// OpenWorktree opens a worktree of this repository at the given directory.
func (r *Repository) OpenWorktree(ctx context.Context, dir string) (*Worktree, error) {
	out, err := r.gitCmd(ctx, "rev-parse", "--show-toplevel", "--absolute-git-dir").
		Dir(dir).
		OutputString(r.exec)
	if err != nil {
		return nil, err
	}

	rootDir, gitDir, ok := strings.Cut(out, "\n")
	if !ok {
		return nil, fmt.Errorf("unexpected output from git rev-parse: %q", out)
	}
	return newWorktree(gitDir, rootDir, r, r.log, r.exec), nil
}

// OpenWorktree opens the repository containing dir
// and the worktree at dir.
func OpenWorktree(ctx context.Context, dir string, opts OpenOptions) (*Worktree, error) {
	repo, err := Open(ctx, dir, opts)
	if err != nil {
		return nil, err
	}
	return repo.OpenWorktree(ctx, dir)
}

// WorktreeListItem represents a worktree associated with a repository.
type WorktreeListItem struct {
	// Path is the path to the worktree.
	// Use this with Repository.OpenWorktree.
	Path string

	// Bare reports that the worktree is a bare repository.
	Bare bool

	// Detached reports that the worktree is in a detached HEAD state.
	Detached bool

	// Locked reports whether the worktree is locked.
	Locked bool

	// LockedReason reports why the worktree is locked, if known.
	// May be empty even when Locked is true.
	LockedReason string

	// Prunable reports whether `git worktree prune` would remove this
	// entry (e.g. its directory no longer exists).
	Prunable bool

	// PrunableReason reports why the worktree is prunable, if known.
	PrunableReason string

	// Branch is the name of the branch checked out in this worktree.
	// If empty, the worktree may not have a branch checked out.
	Branch string

	// Head is the hash of the HEAD commit in this worktree.
	Head Hash
}

// Worktrees returns a list of worktrees associated with the repository.
//
// Bare entries are included in the raw stream; ListWorktrees collects
// them too and checks that at least one non-bare entry exists.
func (r *Repository) Worktrees(ctx context.Context) iter.Seq2[*WorktreeListItem, error] {
	return func(yield func(*WorktreeListItem, error) bool) {
		var item *WorktreeListItem
		for line, err := range r.gitCmd(ctx, "worktree", "list", "--porcelain", "-z").Scan(r.exec, scanutil.SplitNull) {
			if err != nil {
				yield(nil, fmt.Errorf("worktree list: %w", err))
				return
			}

			// worktree list porcelain has output in the form:
			//
			//	worktree <path>
			//	attr1 <value>
			//	attr2 <value>
			//	boolattr1
			//	boolattr2
			//
			// Where worktree is the first line for a worktree,
			// and then the attributes follow.
			// An empty line indicates the end of a worktree entry.
			if len(line) == 0 {
				if item != nil {
					if !yield(item, nil) {
						return
					}
				}
				item = nil
				continue
			}

			key, value, _ := bytes.Cut(line, []byte(" "))
			switch string(key) {
			case "worktree":
				item = &WorktreeListItem{Path: string(value)}
			case "detached":
				item.Detached = true
			case "bare":
				item.Bare = true
			case "branch":
				item.Branch = strings.TrimPrefix(string(value), "refs/heads/")
			case "HEAD":
				item.Head = Hash(value)
			case "locked":
				item.Locked = true
				item.LockedReason = string(value)
			case "prunable":
				item.Prunable = true
				item.PrunableReason = string(value)
			default:
				// Ignore unknown attributes.
			}
		}
	}
}

// ErrNoWorktreesFound indicates that a worktree listing contained no
// usable (non-bare) entries.
var ErrNoWorktreesFound = fmt.Errorf("no worktrees found")

// ListWorktrees collects Worktrees into a slice, requiring at least one
// non-bare entry. The first non-bare entry is the primary worktree.
func (r *Repository) ListWorktrees(ctx context.Context) (items []*WorktreeListItem, err error) {
	for item, err := range r.Worktrees(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	for _, item := range items {
		if !item.Bare {
			return items, nil
		}
	}
	return nil, ErrNoWorktreesFound
}

// WorktreeAddRequest specifies the parameters for adding a worktree.
type WorktreeAddRequest struct {
	// Path is the absolute (or repo-root-relative) path for the new worktree.
	Path string // required

	// Branch is the branch to check out in the new worktree.
	// Mutually exclusive with NewBranch.
	Branch string

	// NewBranch, if set, creates a new branch with this name in the
	// worktree, starting from Base (or HEAD if Base is empty).
	NewBranch string

	// Base is the starting point for NewBranch. Ignored unless NewBranch
	// is set.
	Base string

	// Detach checks out the worktree in detached HEAD state.
	Detach bool
}

// ErrWorktreePathOccupied indicates a worktree cannot be created because
// its target path is already in use by another worktree.
type ErrWorktreePathOccupied struct {
	Path     string
	Occupant string // branch checked out at Path, if known
}

func (e *ErrWorktreePathOccupied) Error() string {
	if e.Occupant != "" {
		return fmt.Sprintf("%s is already checked out at %s", e.Occupant, e.Path)
	}
	return fmt.Sprintf("%s is already a worktree", e.Path)
}

// WorktreeAdd creates a new worktree, returning [ErrWorktreePathOccupied]
// if the path collides with an existing worktree.
func (r *Repository) WorktreeAdd(ctx context.Context, req WorktreeAddRequest) error {
	args := []string{"worktree", "add"}
	if req.Detach {
		args = append(args, "--detach")
	}
	if req.NewBranch != "" {
		args = append(args, "-b", req.NewBranch)
	}
	args = append(args, req.Path)
	switch {
	case req.NewBranch != "" && req.Base != "":
		args = append(args, req.Base)
	case req.Branch != "":
		args = append(args, req.Branch)
	}

	err := r.gitCmd(ctx, args...).Run(r.exec)
	if err == nil {
		return nil
	}

	if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "already registered") {
		return &ErrWorktreePathOccupied{Path: req.Path}
	}
	return fmt.Errorf("git worktree add: %w", err)
}

// WorktreeRemoveOptions configures WorktreeRemove.
type WorktreeRemoveOptions struct {
	// Force removes the worktree even if it has local modifications.
	Force bool
}

// WorktreeRemove deletes a worktree and its administrative files.
func (r *Repository) WorktreeRemove(ctx context.Context, path string, opts WorktreeRemoveOptions) error {
	args := []string{"worktree", "remove"}
	if opts.Force {
		args = append(args, "--force")
	}
	args = append(args, path)

	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("git worktree remove: %w", err)
	}
	return nil
}
