package checkout

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prassanna-ravishankar/worktrunk/internal/directive"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

type fakeRepo struct {
	root        string
	worktrees   []*git.WorktreeListItem
	locals      []string
	remote      string
	defaultBr   string
	remoteHeads map[string]git.Hash

	created   []git.CreateBranchRequest
	added     []git.WorktreeAddRequest
	upstreams map[string]string
}

func (f *fakeRepo) ListWorktrees(context.Context) ([]*git.WorktreeListItem, error) { return f.worktrees, nil }
func (f *fakeRepo) LocalBranches(context.Context) ([]string, error)                { return f.locals, nil }
func (f *fakeRepo) CreateBranch(_ context.Context, req git.CreateBranchRequest) error {
	f.created = append(f.created, req)
	f.locals = append(f.locals, req.Name)
	return nil
}
func (f *fakeRepo) SetBranchUpstream(_ context.Context, branch, upstream string) error {
	if f.upstreams == nil {
		f.upstreams = map[string]string{}
	}
	f.upstreams[branch] = upstream
	return nil
}
func (f *fakeRepo) WorktreeAdd(_ context.Context, req git.WorktreeAddRequest) error {
	f.added = append(f.added, req)
	return nil
}
func (f *fakeRepo) PeelToCommit(_ context.Context, ref string) (git.Hash, error) {
	if h, ok := f.remoteHeads[ref]; ok {
		return h, nil
	}
	return "", &git.InvalidReferenceError{Ref: ref}
}
func (f *fakeRepo) PrimaryRemote(context.Context) (string, error)            { return f.remote, nil }
func (f *fakeRepo) DefaultBranch(context.Context, string) (string, error)    { return f.defaultBr, nil }
func (f *fakeRepo) Root() string                                             { return f.root }
func (f *fakeRepo) GitDir() string                                           { return f.root }

type fakeApprovals struct{ approved map[string]bool }

func (f *fakeApprovals) IsApproved(_, template string) bool { return f.approved[template] }
func (f *fakeApprovals) Approve(_, template string) error {
	if f.approved == nil {
		f.approved = map[string]bool{}
	}
	f.approved[template] = true
	return nil
}

type fakeConfirmer struct{ approve bool }

func (f *fakeConfirmer) ConfirmHooks([]string) (bool, error) { return f.approve, nil }

func newTestHandler(repo *fakeRepo) (*Handler, *directive.Writer) {
	w := directive.Open()
	return &Handler{
		Log:                   silog.Nop(),
		Repository:            repo,
		Approvals:             &fakeApprovals{},
		Confirm:               &fakeConfirmer{approve: true},
		Directive:             w,
		WorktreePathTemplate:  "{{ repo_root }}/../{{ repo }}.{{ branch }}",
		ProjectID:             "github.com/acme/widget",
	}, w
}

func TestSwitchBranch_reuseExistingWorktree(t *testing.T) {
	repo := &fakeRepo{
		root:      "/home/u/widget",
		worktrees: []*git.WorktreeListItem{{Path: "/home/u/widget.feature", Branch: "feature"}},
	}
	h, _ := newTestHandler(repo)

	err := h.SwitchBranch(t.Context(), &Request{Branch: "feature"})
	require.NoError(t, err)
	assert.Empty(t, repo.added, "reuse must not create a new worktree")
}

func TestSwitchBranch_addsWorktreeForExistingBranch(t *testing.T) {
	repo := &fakeRepo{root: "/home/u/widget", locals: []string{"feature"}}
	h, _ := newTestHandler(repo)

	err := h.SwitchBranch(t.Context(), &Request{Branch: "feature"})
	require.NoError(t, err)
	require.Len(t, repo.added, 1)
	assert.Equal(t, "feature", repo.added[0].Branch)
	assert.Empty(t, repo.added[0].NewBranch)
}

func TestSwitchBranch_createFailsIfBranchExists(t *testing.T) {
	repo := &fakeRepo{root: "/home/u/widget", locals: []string{"feature"}}
	h, _ := newTestHandler(repo)

	err := h.SwitchBranch(t.Context(), &Request{Branch: "feature", Create: true})
	var already *git.BranchAlreadyExistsError
	require.ErrorAs(t, err, &already)
}

func TestSwitchBranch_createsNewBranchFromBase(t *testing.T) {
	repo := &fakeRepo{root: "/home/u/widget", defaultBr: "main"}
	h, _ := newTestHandler(repo)

	err := h.SwitchBranch(t.Context(), &Request{Branch: "feature", Create: true})
	require.NoError(t, err)
	require.Len(t, repo.added, 1)
	assert.Equal(t, "feature", repo.added[0].NewBranch)
	assert.Equal(t, "main", repo.added[0].Base)
}

func TestSwitchBranch_remoteDWIMCreatesTrackingBranch(t *testing.T) {
	repo := &fakeRepo{
		root:        "/home/u/widget",
		remote:      "origin",
		remoteHeads: map[string]git.Hash{"origin/feature": "abc123"},
	}
	h, _ := newTestHandler(repo)

	err := h.SwitchBranch(t.Context(), &Request{Branch: "feature"})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "feature", repo.created[0].Name)
	assert.Equal(t, "origin/feature", repo.upstreams["feature"])
	require.Len(t, repo.added, 1)
	assert.Equal(t, "feature", repo.added[0].Branch)
}

func TestSwitchBranch_unknownBranchFails(t *testing.T) {
	repo := &fakeRepo{root: "/home/u/widget"}
	h, _ := newTestHandler(repo)

	err := h.SwitchBranch(t.Context(), &Request{Branch: "ghost"})
	require.Error(t, err)
}

func TestSwitchBranch_emitsCDDirectiveToFile(t *testing.T) {
	path := t.TempDir() + "/directives"
	t.Setenv("WT_DIRECTIVE_FILE", path)

	repo := &fakeRepo{root: "/home/u/widget", locals: []string{"feature"}}
	h, w := newTestHandler(repo)

	require.NoError(t, h.SwitchBranch(t.Context(), &Request{Branch: "feature"}))
	require.NoError(t, w.Flush())

	var cds []string
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	directive.Dispatch(raw, func(p string) { cds = append(cds, p) }, func(string) {})
	assert.Equal(t, []string{"/home/u/widget.feature"}, cds)
}
