package delete

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prassanna-ravishankar/worktrunk/internal/directive"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

type fakeRepo struct {
	root      string
	worktrees []*git.WorktreeListItem
	removed   []string
	deletedBr []string
}

func (f *fakeRepo) ListWorktrees(context.Context) ([]*git.WorktreeListItem, error) {
	return f.worktrees, nil
}
func (f *fakeRepo) OpenWorktree(context.Context, string) (*git.Worktree, error) { return nil, nil }
func (f *fakeRepo) WorktreeRemove(_ context.Context, path string, _ git.WorktreeRemoveOptions) error {
	f.removed = append(f.removed, path)
	return nil
}
func (f *fakeRepo) DeleteBranch(_ context.Context, branch string, _ git.BranchDeleteOptions) error {
	f.deletedBr = append(f.deletedBr, branch)
	return nil
}
func (f *fakeRepo) Root() string { return f.root }

func TestRemoveWorktree_cannotRemovePrimary(t *testing.T) {
	repo := &fakeRepo{
		root:      "/home/u/widget",
		worktrees: []*git.WorktreeListItem{{Path: "/home/u/widget", Branch: "main"}},
	}
	h := &Handler{Log: silog.Nop(), Repository: repo, Directive: directive.Open()}

	err := h.RemoveWorktree(t.Context(), &Request{Branch: "main"})
	var cannotRemove *git.CannotRemoveMainWorktreeError
	require.ErrorAs(t, err, &cannotRemove)
}

func TestRemoveWorktree_unknownBranch(t *testing.T) {
	repo := &fakeRepo{
		root:      "/home/u/widget",
		worktrees: []*git.WorktreeListItem{{Path: "/home/u/widget", Branch: "main"}},
	}
	h := &Handler{Log: silog.Nop(), Repository: repo, Directive: directive.Open()}

	err := h.RemoveWorktree(t.Context(), &Request{Branch: "ghost"})
	require.Error(t, err)
}

func TestFindTarget_byCurrentPath(t *testing.T) {
	worktrees := []*git.WorktreeListItem{
		{Path: "/a", Branch: "main"},
		{Path: "/b", Branch: "feature"},
	}
	target, err := findTarget(worktrees, "", "/b")
	require.NoError(t, err)
	assert.Equal(t, "feature", target.Branch)
}
