package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prassanna-ravishankar/worktrunk/internal/ci"
	"github.com/prassanna-ravishankar/worktrunk/internal/forge/forgeurl"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
)

func enrichWorktree(ctx context.Context, repo *git.Repository, wt *git.WorktreeListItem, primary bool, opts Options) (*Row, error) {
	row := &Row{
		Kind:         RowWorktree,
		WorktreePath: wt.Path,
		Primary:      primary,
		Bare:         wt.Bare,
		Locked:       wt.Locked,
		Prunable:     wt.Prunable,
		Branch:       wt.Branch,
		Head:         wt.Head,
	}
	if wt.Bare {
		return row, nil
	}

	ref := wt.Branch
	if ref == "" {
		ref = string(wt.Head)
	}

	if ts, err := repo.CommitTimestamp(ctx, ref); err == nil {
		row.CommitTime = ts
	} else {
		return nil, fmt.Errorf("commit timestamp: %w", err)
	}
	if subj, err := repo.CommitSubject(ctx, ref); err == nil {
		row.CommitSubject = subj
	} else {
		return nil, fmt.Errorf("commit subject: %w", err)
	}

	if opts.Integration != "" && ref != opts.Integration {
		ahead, behind, err := repo.AheadBehind(ctx, opts.Integration, ref)
		if err != nil {
			return nil, fmt.Errorf("ahead/behind vs integration: %w", err)
		}
		row.AheadIntegration, row.BehindIntegration = ahead, behind
		row.Divergence = git.DivergenceFrom(ahead, behind)

		if opts.FullDiff {
			stat, err := repo.BranchDiffStats(ctx, opts.Integration, ref)
			if err != nil {
				return nil, fmt.Errorf("branch diff stats: %w", err)
			}
			row.BranchDiff = stat
		}
	}

	w, err := repo.OpenWorktree(ctx, wt.Path)
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	if diff, err := w.WorkingTreeDiffStats(ctx); err == nil {
		row.WorkDiff = diff
	} else {
		return nil, fmt.Errorf("working tree diff stats: %w", err)
	}

	if wt.Branch != "" && opts.Integration != "" && wt.Branch != opts.Integration {
		fastPath, err := computeFastPath(ctx, repo, w, opts.Integration, row.WorkDiff)
		if err != nil {
			return nil, fmt.Errorf("fast-path diff: %w", err)
		}
		row.FastPath = fastPath
	}

	if wt.Branch != "" {
		upstream, err := repo.BranchUpstream(ctx, wt.Branch)
		switch {
		case err == nil:
			row.Upstream = upstream
			ahead, behind, err := repo.AheadBehind(ctx, upstream, wt.Branch)
			if err != nil {
				return nil, fmt.Errorf("ahead/behind vs upstream: %w", err)
			}
			row.AheadUpstream, row.BehindUpstream = ahead, behind
			row.UpstreamDivergence = git.UpstreamDivergenceFrom(ahead, behind)
		case errors.Is(err, git.ErrNotExist):
			// no upstream configured
		default:
			return nil, fmt.Errorf("branch upstream: %w", err)
		}
	}

	state, err := w.OperationState(ctx)
	if err != nil {
		return nil, fmt.Errorf("operation state: %w", err)
	}
	row.OperationState = state

	status, err := w.StatusPorcelain(ctx)
	if err != nil {
		return nil, fmt.Errorf("status porcelain: %w", err)
	}

	if opts.CheckConflicts && opts.Integration != "" && wt.Branch != "" && wt.Branch != opts.Integration {
		conflict, err := repo.HasMergeConflicts(ctx, opts.Integration, wt.Branch)
		if err != nil {
			return nil, fmt.Errorf("merge conflict probe: %w", err)
		}
		row.HasConflict = conflict
	}

	row.Symbols = git.StatusSymbols{
		HasConflicts:       row.HasConflict || status.HasConflicts,
		BranchState:        branchState(row, opts),
		GitOperation:       row.OperationState,
		WorktreeAttrs:      worktreeAttrs(wt.Bare, wt.Locked, wt.Prunable),
		MainDivergence:     row.Divergence,
		UpstreamDivergence: row.UpstreamDivergence,
		WorkingTree:        status.WorkingTree,
	}

	if opts.FetchCI && wt.Branch != "" {
		row.CI = detectCI(ctx, repo, opts, wt.Branch, string(wt.Head))
	}

	row.UserStatus = userStatus(ctx, repo, wt.Branch)
	row.Dimmed = dimmed(row, primary)

	return row, nil
}

func enrichBranch(ctx context.Context, repo *git.Repository, name string, opts Options) (*Row, error) {
	row := &Row{Kind: RowBranch, Branch: name}

	head, err := repo.PeelToCommit(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	row.Head = head

	if ts, err := repo.CommitTimestamp(ctx, name); err == nil {
		row.CommitTime = ts
	} else {
		return nil, fmt.Errorf("commit timestamp: %w", err)
	}
	if subj, err := repo.CommitSubject(ctx, name); err == nil {
		row.CommitSubject = subj
	} else {
		return nil, fmt.Errorf("commit subject: %w", err)
	}

	if opts.Integration != "" && name != opts.Integration {
		ahead, behind, err := repo.AheadBehind(ctx, opts.Integration, name)
		if err != nil {
			return nil, fmt.Errorf("ahead/behind vs integration: %w", err)
		}
		row.AheadIntegration, row.BehindIntegration = ahead, behind
		row.Divergence = git.DivergenceFrom(ahead, behind)

		if opts.FullDiff {
			stat, err := repo.BranchDiffStats(ctx, opts.Integration, name)
			if err != nil {
				return nil, fmt.Errorf("branch diff stats: %w", err)
			}
			row.BranchDiff = stat
		}
	}

	upstream, err := repo.BranchUpstream(ctx, name)
	switch {
	case err == nil:
		row.Upstream = upstream
		ahead, behind, err := repo.AheadBehind(ctx, upstream, name)
		if err != nil {
			return nil, fmt.Errorf("ahead/behind vs upstream: %w", err)
		}
		row.AheadUpstream, row.BehindUpstream = ahead, behind
		row.UpstreamDivergence = git.UpstreamDivergenceFrom(ahead, behind)
	case errors.Is(err, git.ErrNotExist):
	default:
		return nil, fmt.Errorf("branch upstream: %w", err)
	}

	if opts.CheckConflicts && opts.Integration != "" && name != opts.Integration {
		conflict, err := repo.HasMergeConflicts(ctx, opts.Integration, name)
		if err != nil {
			return nil, fmt.Errorf("merge conflict probe: %w", err)
		}
		row.HasConflict = conflict
	}

	row.Symbols = git.StatusSymbols{
		HasConflicts:       row.HasConflict,
		BranchState:        branchState(row, opts),
		MainDivergence:     row.Divergence,
		UpstreamDivergence: row.UpstreamDivergence,
	}

	if opts.FetchCI {
		row.CI = detectCI(ctx, repo, opts, name, string(head))
	}

	row.UserStatus = userStatus(ctx, repo, name)
	return row, nil
}

// computeFastPath implements the diff-to-integration fast-path: if the
// worktree's tree hash equals the integration branch's tree hash and
// the working tree is clean, report (0,0) without running a diff. If
// the tree hash matches but the tree is dirty (rare), the actual diff
// is measured. If the tree hash differs, nil is returned (the
// expensive diff is skipped).
func computeFastPath(ctx context.Context, repo *git.Repository, w *git.Worktree, integration string, workDiff git.DiffStat) (*git.DiffStat, error) {
	headTree, err := w.PeelToTree(ctx, "HEAD")
	if err != nil {
		return nil, err
	}

	integrationTree, err := repo.PeelToTree(ctx, integration)
	if err != nil {
		return nil, err
	}

	if headTree != integrationTree {
		return nil, nil
	}

	if workDiff == (git.DiffStat{}) {
		return &git.DiffStat{}, nil
	}
	return &workDiff, nil
}

func branchState(row *Row, opts Options) git.BranchState {
	switch {
	case opts.Integration != "" && row.Branch == opts.Integration:
		return git.BranchStateNone
	case row.FastPath != nil && *row.FastPath == (git.DiffStat{}):
		return git.BranchStateMatchesMain
	case row.AheadIntegration == 0 && row.BehindIntegration == 0 && row.CommitSubject == "":
		return git.BranchStateNoCommits
	default:
		return git.BranchStateNone
	}
}

// dimmed reports whether a row should render dimmed: non-primary, and
// either it carries no unique work (ahead==0 and a clean working
// tree), or the fast-path field reports a tree-hash match.
func dimmed(row *Row, primary bool) bool {
	if primary {
		return false
	}
	noUniqueWork := row.AheadIntegration == 0 && row.WorkDiff == (git.DiffStat{})
	fastPathMatch := row.FastPath != nil && *row.FastPath == (git.DiffStat{})
	return noUniqueWork || fastPathMatch
}

func worktreeAttrs(bare, locked, prunable bool) string {
	var b strings.Builder
	if bare {
		b.WriteString("◇")
	}
	if locked {
		b.WriteString("⊠")
	}
	if prunable {
		b.WriteString("⚠")
	}
	return b.String()
}

func detectCI(ctx context.Context, repo *git.Repository, opts Options, branch, headSHA string) *ci.PrStatus {
	if len(opts.CIProviders) == 0 {
		return nil
	}

	remote, err := repo.PrimaryRemote(ctx)
	if err != nil || remote == "" {
		return nil
	}
	url, err := repo.RemoteURL(ctx, remote)
	if err != nil {
		return nil
	}
	identity := repoIdentity(url)

	for _, p := range opts.CIProviders {
		status, err := p.Detect(ctx, identity, branch, headSHA)
		if err != nil || status == nil {
			continue
		}
		return status
	}
	return nil
}

// repoIdentity reduces a remote URL to "owner/repo" form for CI
// provider lookups, reusing the forge package's remote-URL parser.
func repoIdentity(remoteURL string) string {
	u, err := forgeurl.Parse(remoteURL)
	if err != nil {
		return ""
	}
	return strings.Trim(strings.TrimSuffix(u.Path, ".git"), "/")
}

func userStatus(ctx context.Context, repo *git.Repository, branch string) string {
	cfg := repo.Config()
	if branch != "" {
		if v, err := cfg.Get(ctx, git.ConfigKey("worktrunk.status."+branch)); err == nil {
			return v
		}
	}
	if v, err := cfg.Get(ctx, "worktrunk.status"); err == nil {
		return v
	}
	return ""
}
