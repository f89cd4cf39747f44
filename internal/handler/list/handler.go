// Package list implements worktrunk's list command: enrich every
// worktree (and, optionally, every untracked local branch) with git
// metadata and render it as a table, JSON, or a one-line status
// summary for shell prompts.
package list

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/prassanna-ravishankar/worktrunk/internal/ci"
	"github.com/prassanna-ravishankar/worktrunk/internal/enrich"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/layout"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

// GitRepository is the subset of the git facade List needs. Enrichment
// itself is handed the concrete *git.Repository (see internal/enrich),
// since its helpers are not behind an interface seam; List only needs
// enough to resolve the integration branch and current worktree.
type GitRepository interface {
	ListWorktrees(ctx context.Context) ([]*git.WorktreeListItem, error)
	PrimaryRemote(ctx context.Context) (string, error)
	DefaultBranch(ctx context.Context, remote string) (string, error)
}

var _ GitRepository = (*git.Repository)(nil)

// Enricher runs the enrichment pipeline. NewEnricher adapts a
// *git.Repository to it; tests substitute a fake that returns canned rows.
type Enricher interface {
	Run(ctx context.Context, opts enrich.Options) (*enrich.ListData, error)
}

type repositoryEnricher struct{ repo *git.Repository }

func (e repositoryEnricher) Run(ctx context.Context, opts enrich.Options) (*enrich.ListData, error) {
	return enrich.Run(ctx, e.repo, opts)
}

// NewEnricher adapts a *git.Repository to Enricher.
func NewEnricher(repo *git.Repository) Enricher { return repositoryEnricher{repo: repo} }

// Handler implements the list command.
type Handler struct {
	Log         *silog.Logger // required
	Repository  GitRepository // required
	Enrich      Enricher      // required
	CIProviders []ci.Provider
}

// Request holds list command parameters.
type Request struct {
	ShowBranches bool
	Full         bool
	JSON         bool
	CurrentPath  string // absolute path of the worktree the command was invoked from

	Stdout io.Writer // required
	IsTTY  bool       // true when Stdout is a terminal
	Width  int        // terminal width override; 0 means autodetect
}

// ListWorktrees runs enrichment and renders the result to req.Stdout.
func (h *Handler) ListWorktrees(ctx context.Context, req *Request) error {
	remote, err := h.Repository.PrimaryRemote(ctx)
	if err != nil {
		remote = ""
	}
	integration, err := h.Repository.DefaultBranch(ctx, remote)
	if err != nil {
		return fmt.Errorf("resolve integration branch: %w", err)
	}

	opts := enrich.Options{
		ShowBranches:         req.ShowBranches,
		FullDiff:             req.Full,
		FetchCI:              len(h.CIProviders) > 0,
		CheckConflicts:       true,
		Integration:          integration,
		CurrentWorktreePath:  req.CurrentPath,
		CIProviders:          h.CIProviders,
		Log:                  h.Log,
	}

	if req.JSON {
		data, err := h.Enrich.Run(ctx, opts)
		if err != nil {
			return err
		}
		return writeJSON(req.Stdout, data)
	}

	if !req.IsTTY {
		data, err := h.Enrich.Run(ctx, opts)
		if err != nil {
			return err
		}
		renderBatch(req.Stdout, data, req.Full, req.Width)
		return nil
	}

	worktrees, err := h.Repository.ListWorktrees(ctx)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}
	names := make([]string, len(worktrees))
	for i, wt := range worktrees {
		names[i] = wt.Branch
	}

	skeletonCols := layout.NewColumns(req.Full)
	for _, name := range names {
		skeletonCols.Grow(layout.ColumnBranch, runewidth.StringWidth(name))
	}
	skeletonCols.Resolve(layout.ResolveWidth(req.Width))
	fmt.Fprintln(req.Stdout, skeletonCols.HeaderLine())
	if stop := layout.Skeleton(req.Stdout, skeletonCols, names); stop {
		return nil
	}

	data, err := h.Enrich.Run(ctx, opts)
	if err != nil {
		return err
	}
	renderBatch(req.Stdout, data, req.Full, req.Width)
	return nil
}

func renderBatch(w io.Writer, data *enrich.ListData, full bool, width int) {
	cols := layout.Build(data, layout.Options{Full: full, Width: width})
	fmt.Fprintln(w, cols.HeaderLine())
	for _, row := range data.Items {
		layout.Row(w, cols, row)
	}
}

// jsonRow is the wire shape for --json output: a flattened,
// stably-named projection of enrich.Row.
type jsonRow struct {
	Kind              string    `json:"kind"`
	WorktreePath      string    `json:"worktree_path,omitempty"`
	Branch            string    `json:"branch,omitempty"`
	Head              string    `json:"head,omitempty"`
	Primary           bool      `json:"primary,omitempty"`
	CommitTime        time.Time `json:"commit_time,omitempty"`
	CommitSubject     string    `json:"commit_subject,omitempty"`
	Ahead             int       `json:"ahead"`
	Behind            int       `json:"behind"`
	Upstream          string    `json:"upstream,omitempty"`
	Dimmed            bool      `json:"dimmed,omitempty"`
	HasConflict       bool      `json:"has_conflict,omitempty"`
	Error             string    `json:"error,omitempty"`
}

func writeJSON(w io.Writer, data *enrich.ListData) error {
	rows := make([]jsonRow, len(data.Items))
	for i, r := range data.Items {
		kind := "branch"
		if r.Kind == enrich.RowWorktree {
			kind = "worktree"
		}
		jr := jsonRow{
			Kind:          kind,
			WorktreePath:  r.WorktreePath,
			Branch:        r.Branch,
			Head:          r.Head.String(),
			Primary:       r.Primary,
			CommitTime:    r.CommitTime,
			CommitSubject: r.CommitSubject,
			Ahead:         r.AheadIntegration,
			Behind:        r.BehindIntegration,
			Upstream:      r.Upstream,
			Dimmed:        r.Dimmed,
			HasConflict:   r.HasConflict,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		rows[i] = jr
	}
	enc := json.NewEncoder(w)
	return enc.Encode(rows)
}

// StatusLineRequest holds parameters for the status-line summary.
type StatusLineRequest struct {
	CurrentPath string
	Stdout      io.Writer // required
}

// StatusLine prints a single-line summary of the invoking worktree:
// branch name, ahead/behind vs. the integration branch, and a dirty
// marker. It is meant for shell prompt integration (`wt list
// statusline`), so it never touches exit codes beyond "found" /
// "not found".
func (h *Handler) StatusLine(ctx context.Context, req *StatusLineRequest) error {
	remote, err := h.Repository.PrimaryRemote(ctx)
	if err != nil {
		remote = ""
	}
	integration, err := h.Repository.DefaultBranch(ctx, remote)
	if err != nil {
		return fmt.Errorf("resolve integration branch: %w", err)
	}

	data, err := h.Enrich.Run(ctx, enrich.Options{
		Integration:         integration,
		CurrentWorktreePath: req.CurrentPath,
		Log:                 h.Log,
	})
	if err != nil {
		return err
	}

	for _, row := range data.Items {
		if row.Kind != enrich.RowWorktree || row.WorktreePath != req.CurrentPath {
			continue
		}
		dirty := ""
		if row.WorkDiff.Added != 0 || row.WorkDiff.Deleted != 0 {
			dirty = "*"
		}
		fmt.Fprintf(req.Stdout, "%s%s +%d-%d\n", row.Branch, dirty, row.AheadIntegration, row.BehindIntegration)
		return nil
	}
	return fmt.Errorf("current worktree %s not found", req.CurrentPath)
}
