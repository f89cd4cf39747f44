package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prassanna-ravishankar/worktrunk/internal/directive"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/push"
	"github.com/prassanna-ravishankar/worktrunk/internal/handler/squash"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

type fakeRepo struct {
	worktrees []*git.WorktreeListItem
	byPath    map[string]*fakeWorktree
	removed   []string
	deleted   []string
}

func (f *fakeRepo) ListWorktrees(context.Context) ([]*git.WorktreeListItem, error) {
	return f.worktrees, nil
}
func (f *fakeRepo) OpenWorktree(_ context.Context, dir string) (GitWorktree, error) {
	return f.byPath[dir], nil
}
func (f *fakeRepo) DeleteBranch(_ context.Context, branch string, opts git.BranchDeleteOptions) error {
	if opts.Force {
		panic("merge cleanup must never force-delete the source branch")
	}
	f.deleted = append(f.deleted, branch)
	return nil
}
func (f *fakeRepo) WorktreeRemove(_ context.Context, path string, _ git.WorktreeRemoveOptions) error {
	f.removed = append(f.removed, path)
	return nil
}

type fakeWorktree struct {
	dirty     bool
	added     bool
	committed *git.CommitRequest
	rebased   *git.RebaseRequest
}

func (f *fakeWorktree) StatusPorcelain(context.Context) (git.WorkingTreeStatus, error) {
	return git.WorkingTreeStatus{Dirty: f.dirty}, nil
}
func (f *fakeWorktree) AddAll(context.Context) error { f.added = true; return nil }
func (f *fakeWorktree) Commit(_ context.Context, req git.CommitRequest) error {
	f.committed = &req
	return nil
}
func (f *fakeWorktree) Rebase(_ context.Context, req git.RebaseRequest) error {
	f.rebased = &req
	return nil
}

type fakePusher struct{ called *push.Request }

func (f *fakePusher) PushBranch(_ context.Context, req *push.Request) error {
	f.called = req
	return nil
}

type fakeSquasher struct{ called bool }

func (f *fakeSquasher) SquashBranch(context.Context, string, string, *squash.Options) error {
	f.called = true
	return nil
}

func TestMergeBranch_cleanTreeFastForwardMerge(t *testing.T) {
	sourceWt := &fakeWorktree{}
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{{Path: "/feat", Branch: "feat"}},
		byPath:    map[string]*fakeWorktree{"/feat": sourceWt},
	}
	pusher := &fakePusher{}
	h := &Handler{Log: silog.Nop(), Repository: repo, Push: pusher, Squash: &fakeSquasher{}, Directive: directive.Open()}

	err := h.MergeBranch(t.Context(), &Request{Branch: "feat", Target: "main"})
	require.NoError(t, err)
	require.NotNil(t, pusher.called)
	assert.Equal(t, "feat", pusher.called.Source)
	assert.Equal(t, "main", pusher.called.Target)
	assert.Equal(t, []string{"/feat"}, repo.removed)
	assert.Equal(t, []string{"feat"}, repo.deleted)
	assert.Nil(t, sourceWt.committed)
	require.NotNil(t, sourceWt.rebased)
	assert.Equal(t, "main", sourceWt.rebased.Upstream)
}

func TestMergeBranch_dirtyTreeCommitsBeforeRebase(t *testing.T) {
	sourceWt := &fakeWorktree{dirty: true}
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{{Path: "/feat", Branch: "feat"}},
		byPath:    map[string]*fakeWorktree{"/feat": sourceWt},
	}
	h := &Handler{Log: silog.Nop(), Repository: repo, Push: &fakePusher{}, Squash: &fakeSquasher{}, Directive: directive.Open()}

	err := h.MergeBranch(t.Context(), &Request{Branch: "feat", Target: "main"})
	require.NoError(t, err)
	assert.True(t, sourceWt.added)
	require.NotNil(t, sourceWt.committed)
}

func TestMergeBranch_trackedOnlySkipsAddAll(t *testing.T) {
	sourceWt := &fakeWorktree{dirty: true}
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{{Path: "/feat", Branch: "feat"}},
		byPath:    map[string]*fakeWorktree{"/feat": sourceWt},
	}
	h := &Handler{Log: silog.Nop(), Repository: repo, Push: &fakePusher{}, Squash: &fakeSquasher{}, Directive: directive.Open()}

	err := h.MergeBranch(t.Context(), &Request{Branch: "feat", Target: "main", TrackedOnly: true})
	require.NoError(t, err)
	assert.False(t, sourceWt.added)
	require.NotNil(t, sourceWt.committed)
}

func TestMergeBranch_squashInvokesSquasher(t *testing.T) {
	sourceWt := &fakeWorktree{}
	squasher := &fakeSquasher{}
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{{Path: "/feat", Branch: "feat"}},
		byPath:    map[string]*fakeWorktree{"/feat": sourceWt},
	}
	h := &Handler{Log: silog.Nop(), Repository: repo, Push: &fakePusher{}, Squash: squasher, Directive: directive.Open()}

	err := h.MergeBranch(t.Context(), &Request{Branch: "feat", Target: "main", Squash: true})
	require.NoError(t, err)
	assert.True(t, squasher.called)
}

func TestMergeBranch_noRemoveSkipsCleanup(t *testing.T) {
	sourceWt := &fakeWorktree{}
	repo := &fakeRepo{
		worktrees: []*git.WorktreeListItem{{Path: "/feat", Branch: "feat"}},
		byPath:    map[string]*fakeWorktree{"/feat": sourceWt},
	}
	h := &Handler{Log: silog.Nop(), Repository: repo, Push: &fakePusher{}, Squash: &fakeSquasher{}, Directive: directive.Open()}

	err := h.MergeBranch(t.Context(), &Request{Branch: "feat", Target: "main", NoRemove: true})
	require.NoError(t, err)
	assert.Empty(t, repo.removed)
	assert.Empty(t, repo.deleted)
}

func TestMergeBranch_unknownBranchFails(t *testing.T) {
	h := &Handler{Log: silog.Nop(), Repository: &fakeRepo{}, Push: &fakePusher{}, Squash: &fakeSquasher{}, Directive: directive.Open()}
	err := h.MergeBranch(t.Context(), &Request{Branch: "ghost", Target: "main"})
	var invalid *git.InvalidReferenceError
	require.ErrorAs(t, err, &invalid)
}
