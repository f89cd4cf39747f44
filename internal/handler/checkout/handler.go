// Package checkout implements worktrunk's switch command: given a
// branch name, reuse, create, or recover (via remote DWIM) the
// worktree that branch should live in, then tell the calling shell to
// change into it.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prassanna-ravishankar/worktrunk/internal/config"
	"github.com/prassanna-ravishankar/worktrunk/internal/directive"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/hook"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
	"github.com/prassanna-ravishankar/worktrunk/internal/tmpl"
)

//go:generate mockgen -destination mocks_test.go -package checkout -typed . GitRepository,Approvals,Confirmer

// GitRepository is the subset of the git facade Switch needs.
type GitRepository interface {
	ListWorktrees(ctx context.Context) ([]*git.WorktreeListItem, error)
	LocalBranches(ctx context.Context) ([]string, error)
	CreateBranch(ctx context.Context, req git.CreateBranchRequest) error
	SetBranchUpstream(ctx context.Context, branch, upstream string) error
	WorktreeAdd(ctx context.Context, req git.WorktreeAddRequest) error
	PeelToCommit(ctx context.Context, ref string) (git.Hash, error)
	PrimaryRemote(ctx context.Context) (string, error)
	DefaultBranch(ctx context.Context, remote string) (string, error)
	Root() string
	GitDir() string
}

var _ GitRepository = (*git.Repository)(nil)

// Approvals tracks which hook command templates a project has already
// approved, persisting new approvals (see internal/config, internal/ledger).
type Approvals interface {
	IsApproved(projectID, template string) bool
	Approve(projectID, template string) error
}

var _ Approvals = (*config.Store)(nil)

// Confirmer presents a yes/no prompt listing the hook templates that
// still need approval. Returning false means "skip hooks, continue
// the mutation".
type Confirmer interface {
	ConfirmHooks(templates []string) (bool, error)
}

// Handler implements the switch command's plan/approve/execute/emit
// lifecycle (see the mutation engine's five-phase model).
type Handler struct {
	Log        *silog.Logger  // required
	Repository GitRepository  // required
	Hooks      config.Hooks   // project hook config for this repo
	Approvals  Approvals      // required
	Confirm    Confirmer      // required
	Directive  *directive.Writer // required

	ProjectID            string // resolved project id, see ledger.ProjectID
	WorktreePathTemplate string // user-configured worktree path template
	Remote                string // primary remote name, may be empty
}

// Request is a request to switch to (or create) a worktree for a branch.
type Request struct {
	Branch  string // required
	Create  bool
	Base    string // base branch for --create; defaults to the integration branch
	Execute string // optional command template to run after switching
	Args    []string
	NoVerify bool
}

// plan describes what SwitchBranch decided to do, before any git
// mutation happens.
type plan struct {
	kind planKind
	path string
	base string // resolved base, only set for create/dwim
	head string // resolved head commit, only set for dwim
}

type planKind int

const (
	planReuse planKind = iota
	planAddWorktree
	planCreate
	planDWIM
)

// SwitchBranch runs the switch operation end to end.
func (h *Handler) SwitchBranch(ctx context.Context, req *Request) error {
	branch := req.Branch
	if branch == "" {
		return errors.New("branch name must not be blank")
	}

	p, err := h.plan(ctx, req)
	if err != nil {
		return err
	}

	phases, err := h.collectPhases(p, req)
	if err != nil {
		return err
	}

	toRun, err := h.approve(phases, branch)
	if err != nil {
		return err
	}

	if err := h.execute(ctx, req, p); err != nil {
		return err
	}

	commonDir := h.Repository.GitDir()
	for _, phase := range []string{"post-create", "post-start"} {
		cmds, ok := toRun[phase]
		if !ok {
			continue
		}
		mode := hook.SequentialBlocking
		if phase == "post-start" {
			mode = hook.ParallelDetached
		}
		if err := hook.Run(ctx, h.Log, commonDir, cmds, mode, hook.FailFast); err != nil {
			return err
		}
	}
	if cmds, ok := toRun["post-switch"]; ok {
		if err := hook.Run(ctx, h.Log, commonDir, cmds, hook.ParallelDetached, hook.Warn); err != nil {
			h.Log.Warnf("post-switch hook reported an error: %v", err)
		}
	}

	if req.Execute != "" {
		vars := h.vars(p, branch)
		expanded, err := tmpl.Expand(req.Execute, vars, tmpl.ShellEscape)
		if err != nil {
			return fmt.Errorf("expand --execute command: %w", err)
		}
		for _, arg := range req.Args {
			argExpanded, err := tmpl.Expand(arg, vars, tmpl.ShellEscape)
			if err != nil {
				return fmt.Errorf("expand --execute argument %q: %w", arg, err)
			}
			expanded += " " + argExpanded
		}
		h.Directive.Exec(expanded)
	}

	h.Directive.CD(p.path)
	h.Log.Infof("switched to %s (%s)", branch, p.path)
	return nil
}

func (h *Handler) plan(ctx context.Context, req *Request) (*plan, error) {
	branch := req.Branch

	worktrees, err := h.Repository.ListWorktrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	for _, wt := range worktrees {
		if wt.Branch == branch {
			return &plan{kind: planReuse, path: wt.Path}, nil
		}
	}

	locals, err := h.Repository.LocalBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local branches: %w", err)
	}
	exists := false
	for _, b := range locals {
		if b == branch {
			exists = true
			break
		}
	}

	path := h.worktreePath(branch)

	switch {
	case exists && req.Create:
		return nil, &git.BranchAlreadyExistsError{Name: branch}
	case exists:
		return &plan{kind: planAddWorktree, path: path}, nil
	case req.Create:
		base, err := h.resolveBase(ctx, req.Base)
		if err != nil {
			return nil, err
		}
		return &plan{kind: planCreate, path: path, base: base}, nil
	default:
		remote, err := h.Repository.PrimaryRemote(ctx)
		if err != nil {
			return nil, &git.InvalidReferenceError{Ref: branch}
		}
		remoteBranch := remote + "/" + branch
		head, err := h.Repository.PeelToCommit(ctx, remoteBranch)
		if err != nil {
			return nil, &git.InvalidReferenceError{Ref: branch}
		}
		return &plan{kind: planDWIM, path: path, base: remoteBranch, head: string(head)}, nil
	}
}

func (h *Handler) resolveBase(ctx context.Context, base string) (string, error) {
	if base != "" {
		return base, nil
	}
	return h.Repository.DefaultBranch(ctx, h.Remote)
}

func (h *Handler) worktreePath(branch string) string {
	repoRoot := h.Repository.Root()
	vars := tmpl.Vars{
		RepoRoot: repoRoot,
		Repo:     filepath.Base(repoRoot),
		Branch:   tmpl.SanitizeBranch(branch),
	}
	path, err := tmpl.Expand(h.WorktreePathTemplate, vars, tmpl.Literal)
	if err != nil {
		// The template was already validated at config load time;
		// falling back to a deterministic sibling directory keeps
		// this path total rather than partial.
		return filepath.Join(repoRoot, "..", vars.Repo+"."+vars.Branch)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	return filepath.Clean(path)
}

func (h *Handler) vars(p *plan, branch string) tmpl.Vars {
	return tmpl.Vars{
		RepoRoot: h.Repository.Root(),
		Repo:     filepath.Base(h.Repository.Root()),
		Branch:   tmpl.SanitizeBranch(branch),
		Worktree: p.path,
		Remote:   h.Remote,
	}
}

func (h *Handler) execute(ctx context.Context, req *Request, p *plan) error {
	branch := req.Branch
	switch p.kind {
	case planReuse:
		return nil
	case planAddWorktree:
		return h.Repository.WorktreeAdd(ctx, git.WorktreeAddRequest{Path: p.path, Branch: branch})
	case planCreate:
		return h.Repository.WorktreeAdd(ctx, git.WorktreeAddRequest{Path: p.path, NewBranch: branch, Base: p.base})
	case planDWIM:
		if err := h.Repository.CreateBranch(ctx, git.CreateBranchRequest{Name: branch, Head: p.head}); err != nil {
			return fmt.Errorf("create branch from remote %q: %w", p.base, err)
		}
		if err := h.Repository.SetBranchUpstream(ctx, branch, p.base); err != nil {
			h.Log.Warnf("could not set upstream for %s to %s: %v", branch, p.base, err)
		}
		return h.Repository.WorktreeAdd(ctx, git.WorktreeAddRequest{Path: p.path, Branch: branch})
	default:
		return fmt.Errorf("unhandled switch plan kind %d", p.kind)
	}
}

// collectPhases walks project config to list the hook commands each
// relevant phase will invoke, per the plan kind decided above.
func (h *Handler) collectPhases(p *plan, req *Request) (map[string][]config.HookSpec, error) {
	phases := map[string][]config.HookSpec{}
	if req.NoVerify {
		return phases, nil
	}

	switch p.kind {
	case planCreate, planDWIM:
		if specs := h.Hooks.ForPhase("post-create"); len(specs) > 0 {
			phases["post-create"] = specs
		}
		if specs := h.Hooks.ForPhase("post-start"); len(specs) > 0 {
			phases["post-start"] = specs
		}
	}
	if specs := h.Hooks.ForPhase("post-switch"); len(specs) > 0 {
		phases["post-switch"] = specs
	}
	return phases, nil
}

// approve gates every unapproved hook template behind a single
// confirmation prompt, then returns the hook.Command lists to
// actually execute (already-approved plus newly-approved).
func (h *Handler) approve(phases map[string][]config.HookSpec, branch string) (map[string][]hook.Command, error) {
	var pendingTemplates []string
	seen := map[string]bool{}
	for _, specs := range phases {
		for _, spec := range specs {
			if !h.Approvals.IsApproved(h.ProjectID, spec.Command) && !seen[spec.Command] {
				seen[spec.Command] = true
				pendingTemplates = append(pendingTemplates, spec.Command)
			}
		}
	}

	approvedNow := map[string]bool{}
	if len(pendingTemplates) > 0 {
		ok, err := h.Confirm.ConfirmHooks(pendingTemplates)
		if err != nil {
			return nil, fmt.Errorf("confirm hooks: %w", err)
		}
		if ok {
			for _, t := range pendingTemplates {
				if err := h.Approvals.Approve(h.ProjectID, t); err != nil {
					return nil, fmt.Errorf("persist hook approval: %w", err)
				}
				approvedNow[t] = true
			}
		}
	}

	out := map[string][]hook.Command{}
	for phaseName, specs := range phases {
		for _, spec := range specs {
			approved := h.Approvals.IsApproved(h.ProjectID, spec.Command) || approvedNow[spec.Command]
			if !approved {
				continue
			}
			out[phaseName] = append(out[phaseName], hook.Command{
				Phase:  phaseName,
				Name:   spec.Name,
				Shell:  spec.Command,
				Dir:    h.Repository.Root(),
				Branch: tmpl.SanitizeBranch(branch),
			})
		}
	}
	return out, nil
}
