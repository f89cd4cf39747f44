// Package enrich implements the worktree/branch enrichment pipeline:
// given a repository handle, it gathers per-row git metadata in
// parallel and produces the in-memory model consumed by the layout
// renderer and JSON output.
package enrich

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prassanna-ravishankar/worktrunk/internal/ci"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

// Options configures what enrichment gathers.
type Options struct {
	ShowBranches   bool
	FullDiff       bool // also compute branch-vs-integration diff stats
	FetchCI        bool
	CheckConflicts bool

	// Integration is the integration (default) branch name, pre-resolved
	// by the caller via Repository.DefaultBranch.
	Integration string

	// CurrentWorktreePath is the absolute path of the worktree the
	// command was invoked from, used for sort placement and the
	// returned ListData.CurrentWorktreePath.
	CurrentWorktreePath string

	// CIProviders, when FetchCI is set, are tried in order for each
	// branch; the first non-nil result wins.
	CIProviders []ci.Provider

	Log *silog.Logger
}

// Row is the enriched record for one worktree or bare branch: the Go
// equivalent of the source's `enum ListItem { Worktree, Branch }`
// tagged union, expressed as a discriminated struct so callers can
// switch on Kind without a type assertion per field access.
type Row struct {
	Kind RowKind

	// Worktree-only fields (Kind == RowWorktree).
	WorktreePath string
	Primary      bool
	Bare         bool
	Locked       bool
	Prunable     bool
	OperationState git.GitOperation

	Branch string // empty for a detached worktree
	Head   git.Hash

	CommitTime    time.Time
	CommitSubject string

	AheadIntegration  int
	BehindIntegration int
	Divergence        git.MainDivergence

	Upstream         string
	AheadUpstream    int
	BehindUpstream   int
	UpstreamDivergence git.UpstreamDivergence

	WorkDiff   git.DiffStat // worktree rows only
	BranchDiff git.DiffStat // requires Options.FullDiff

	// FastPath mirrors the source's Option<(added, deleted)>: nil means
	// "not computed" (trees differ, skip the measurement); non-nil
	// means either (0,0) tree-hash match or a measured (a,d) when the
	// tree hash matched but the working tree was dirty.
	FastPath *git.DiffStat

	HasConflict bool
	Symbols     git.StatusSymbols
	UserStatus  string

	CI *ci.PrStatus

	// Dimmed reports this row carries no unique work relative to the
	// integration branch (see Dimmed computation in compute.go).
	Dimmed bool

	Err error // set, with only Kind and Branch filled in, if this row's own enrichment failed (branches only)
}

// RowKind discriminates [Row]'s two variants.
type RowKind int

const (
	RowWorktree RowKind = iota
	RowBranch
)

// ListData is the enrichment pipeline's output.
type ListData struct {
	Items               []*Row
	CurrentWorktreePath string
}

// Run gathers worktree (and optionally branch) rows in parallel and
// returns them sorted: primary first, then the current worktree if
// distinct, then the rest by descending commit timestamp.
//
// Errors enriching a single branch are non-fatal: that row is kept
// with only its Kind, Branch and Err set; fields gathered before the
// failure are not carried over.
// Errors enriching a worktree abort the whole call, since the
// worktree row is load-bearing for the table.
func Run(ctx context.Context, repo *git.Repository, opts Options) (*ListData, error) {
	worktrees, err := repo.ListWorktrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	gate := git.NewGate(0)
	rows := make([]*Row, len(worktrees))

	grp, gctx := errgroup.WithContext(ctx)
	for i, wt := range worktrees {
		i, wt := i, wt
		grp.Go(func() error {
			release, err := gate.Acquire(gctx)
			if err != nil {
				return err
			}
			defer release()

			row, err := enrichWorktree(gctx, repo, wt, i == 0, opts)
			if err != nil {
				return fmt.Errorf("enrich worktree %s: %w", wt.Path, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	if opts.ShowBranches {
		present := make(map[string]bool, len(rows))
		for _, r := range rows {
			present[r.Branch] = true
		}

		branches, err := repo.LocalBranches(ctx)
		if err != nil {
			return nil, fmt.Errorf("list local branches: %w", err)
		}

		extra := make([]string, 0, len(branches))
		for _, b := range branches {
			if !present[b] {
				extra = append(extra, b)
			}
		}

		branchRows := make([]*Row, len(extra))
		bgrp, bgctx := errgroup.WithContext(ctx)
		for i, name := range extra {
			i, name := i, name
			bgrp.Go(func() error {
				release, err := gate.Acquire(bgctx)
				if err != nil {
					return err
				}
				defer release()

				row, rowErr := enrichBranch(bgctx, repo, name, opts)
				if rowErr != nil {
					row = &Row{Kind: RowBranch, Branch: name, Err: rowErr}
					opts.logf("enrich branch %s: %v", name, rowErr)
				}
				branchRows[i] = row
				return nil
			})
		}
		_ = bgrp.Wait() // branch errors are embedded per-row, never fatal
		rows = append(rows, branchRows...)
	}

	sortRows(rows, opts.CurrentWorktreePath)

	return &ListData{Items: rows, CurrentWorktreePath: opts.CurrentWorktreePath}, nil
}

func (o Options) logf(format string, args ...any) {
	if o.Log != nil {
		o.Log.Warnf(format, args...)
	}
}

func sortRows(rows []*Row, currentPath string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]

		// Primary worktree always first.
		if a.Primary != b.Primary {
			return a.Primary
		}

		// The invoking worktree next, if distinct from primary.
		aCur := a.Kind == RowWorktree && a.WorktreePath == currentPath
		bCur := b.Kind == RowWorktree && b.WorktreePath == currentPath
		if aCur != bCur {
			return aCur
		}

		// Then descending commit timestamp.
		return a.CommitTime.After(b.CommitTime)
	})
}
