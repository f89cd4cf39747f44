package push

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

type fakeWorktree struct {
	head       git.Hash
	dirty      bool
	dirtyFiles []string

	resetTo string
	stashed bool
	applied string
}

func (f *fakeWorktree) Head(context.Context) (git.Hash, error) { return f.head, nil }
func (f *fakeWorktree) StatusPorcelain(context.Context) (git.WorkingTreeStatus, error) {
	return git.WorkingTreeStatus{Dirty: f.dirty}, nil
}
func (f *fakeWorktree) DiffWork(context.Context) iter.Seq2[git.FileStatus, error] {
	return func(yield func(git.FileStatus, error) bool) {
		for _, p := range f.dirtyFiles {
			if !yield(git.FileStatus{Status: "M", Path: p}, nil) {
				return
			}
		}
	}
}
func (f *fakeWorktree) StashCreate(context.Context, string) (git.Hash, error) {
	f.stashed = true
	return "stash-1", nil
}
func (f *fakeWorktree) StashApply(_ context.Context, stash string) error {
	f.applied = stash
	return nil
}
func (f *fakeWorktree) Reset(_ context.Context, commit string, _ git.ResetOptions) error {
	f.resetTo = commit
	return nil
}

type fakeRepo struct {
	worktrees []*git.WorktreeListItem
	byPath    map[string]*fakeWorktree
	ancestor  bool // IsAncestor's fixed answer for every call
	merges    []string
	changed   []string
}

func (r *fakeRepo) ListWorktrees(context.Context) ([]*git.WorktreeListItem, error) {
	return r.worktrees, nil
}
func (r *fakeRepo) OpenWorktree(_ context.Context, dir string) (GitWorktree, error) {
	return r.byPath[dir], nil
}
func (r *fakeRepo) IsAncestor(context.Context, git.Hash, git.Hash) bool { return r.ancestor }
func (r *fakeRepo) MergeCommits(context.Context, string, string) ([]string, error) {
	return r.merges, nil
}
func (r *fakeRepo) DiffTree(_ context.Context, _, _ string) iter.Seq2[git.FileStatus, error] {
	return func(yield func(git.FileStatus, error) bool) {
		for _, p := range r.changed {
			if !yield(git.FileStatus{Status: "M", Path: p}, nil) {
				return
			}
		}
	}
}

func TestFindByBranch(t *testing.T) {
	worktrees := []*git.WorktreeListItem{
		{Path: "/a", Branch: "main"},
		{Path: "/b", Branch: "feature"},
	}
	item, err := findByBranch(worktrees, "feature")
	require.NoError(t, err)
	assert.Equal(t, "/b", item.Path)

	_, err = findByBranch(worktrees, "ghost")
	var invalid *git.InvalidReferenceError
	require.ErrorAs(t, err, &invalid)
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, []string{"b.go"}, intersect([]string{"a.go", "b.go"}, []string{"b.go", "c.go"}))
	assert.Empty(t, intersect([]string{"a.go"}, []string{"b.go"}))
}

func TestPushedFilesAndDirtyFiles(t *testing.T) {
	repo := &fakeRepo{changed: []string{"x.go", "y.go"}}
	files, err := pushedFiles(repo, t.Context(), "base", "head")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.go", "y.go"}, files)

	wt := &fakeWorktree{dirtyFiles: []string{"x.go"}}
	dirty, err := dirtyFiles(wt, t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"x.go"}, dirty)
}

func newTestHandler(repo *fakeRepo) *Handler {
	return &Handler{Log: silog.Nop(), Repository: repo}
}

func TestPushBranch_unknownBranchFails(t *testing.T) {
	h := newTestHandler(&fakeRepo{})
	err := h.PushBranch(t.Context(), &Request{Source: "ghost", Target: "main"})
	var invalid *git.InvalidReferenceError
	require.ErrorAs(t, err, &invalid)
}

func TestPushBranch_notFastForward(t *testing.T) {
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{
			{Path: "/src", Branch: "feature"},
			{Path: "/tgt", Branch: "main"},
		},
		byPath: map[string]*fakeWorktree{
			"/src": {head: "src-head"},
			"/tgt": {head: "tgt-head"},
		},
		ancestor: false,
	}
	h := newTestHandler(repo)

	err := h.PushBranch(t.Context(), &Request{Source: "feature", Target: "main"})
	var notFF *git.NotFastForwardError
	require.ErrorAs(t, err, &notFF)
}

func TestPushBranch_mergeCommitsRejectedUnlessAllowed(t *testing.T) {
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{
			{Path: "/src", Branch: "feature"},
			{Path: "/tgt", Branch: "main"},
		},
		byPath: map[string]*fakeWorktree{
			"/src": {head: "src-head"},
			"/tgt": {head: "tgt-head"},
		},
		ancestor: true,
		merges:   []string{"deadbeef"},
	}
	h := newTestHandler(repo)

	err := h.PushBranch(t.Context(), &Request{Source: "feature", Target: "main"})
	var merged *git.MergeCommitsFoundError
	require.ErrorAs(t, err, &merged)
}

func TestPushBranch_cleanTargetFastForwards(t *testing.T) {
	targetWt := &fakeWorktree{head: "tgt-head"}
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{
			{Path: "/src", Branch: "feature"},
			{Path: "/tgt", Branch: "main"},
		},
		byPath: map[string]*fakeWorktree{
			"/src": {head: "src-head"},
			"/tgt": targetWt,
		},
		ancestor: true,
	}
	h := newTestHandler(repo)

	err := h.PushBranch(t.Context(), &Request{Source: "feature", Target: "main"})
	require.NoError(t, err)
	assert.Equal(t, "src-head", targetWt.resetTo)
	assert.False(t, targetWt.stashed)
}

func TestPushBranch_autostashesNonOverlappingDirtyTarget(t *testing.T) {
	targetWt := &fakeWorktree{head: "tgt-head", dirty: true, dirtyFiles: []string{"unrelated.go"}}
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{
			{Path: "/src", Branch: "feature"},
			{Path: "/tgt", Branch: "main"},
		},
		byPath: map[string]*fakeWorktree{
			"/src": {head: "src-head"},
			"/tgt": targetWt,
		},
		ancestor: true,
		changed:  []string{"touched.go"},
	}
	h := newTestHandler(repo)

	err := h.PushBranch(t.Context(), &Request{Source: "feature", Target: "main"})
	require.NoError(t, err)
	assert.True(t, targetWt.stashed)
	assert.Equal(t, "stash-1", targetWt.applied)
	assert.Equal(t, "src-head", targetWt.resetTo)
}

func TestPushBranch_conflictingDirtyTargetFailsWithoutStashing(t *testing.T) {
	targetWt := &fakeWorktree{head: "tgt-head", dirty: true, dirtyFiles: []string{"touched.go"}}
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{
			{Path: "/src", Branch: "feature"},
			{Path: "/tgt", Branch: "main"},
		},
		byPath: map[string]*fakeWorktree{
			"/src": {head: "src-head"},
			"/tgt": targetWt,
		},
		ancestor: true,
		changed:  []string{"touched.go"},
	}
	h := newTestHandler(repo)

	err := h.PushBranch(t.Context(), &Request{Source: "feature", Target: "main"})
	var conflict *git.ConflictingChangesError
	require.ErrorAs(t, err, &conflict)
	assert.False(t, targetWt.stashed)
	assert.Empty(t, targetWt.resetTo)
}
