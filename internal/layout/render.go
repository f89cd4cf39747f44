package layout

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/prassanna-ravishankar/worktrunk/internal/enrich"
	"github.com/prassanna-ravishankar/worktrunk/internal/git"
	"github.com/prassanna-ravishankar/worktrunk/internal/ui"
)

// Options configures a render pass.
type Options struct {
	Full      bool // include ColumnBranchDiff
	Width     int  // terminal width; 0 means "use $COLUMNS or 80"
	Skeleton  bool // WT_SKELETON_ONLY: draw the skeleton and stop
}

// Build lays out columns for data and returns them resolved, ready
// to render.
func Build(data *enrich.ListData, opts Options) *Columns {
	cols := NewColumns(opts.Full)
	for _, row := range data.Items {
		growRow(cols, row, opts.Full)
	}
	cols.Resolve(ResolveWidth(opts.Width))
	return cols
}

// ResolveWidth returns w if positive, else $COLUMNS if set, else 80.
// Callers that must resolve columns before enrichment data exists (the
// skeleton pass) use this directly instead of going through Build.
func ResolveWidth(w int) int {
	if w > 0 {
		return w
	}
	if env := os.Getenv("COLUMNS"); env != "" {
		if n, err := fmt.Sscanf(env, "%d", &w); err == nil && n == 1 && w > 0 {
			return w
		}
	}
	return 80
}

func growRow(cols *Columns, row *enrich.Row, full bool) {
	cols.Grow(ColumnBranch, runewidth.StringWidth(branchText(row)))
	cols.GrowDiff(ColumnWorkingDiff, digits(row.WorkDiff.Added), digits(row.WorkDiff.Deleted))
	cols.Grow(ColumnAheadBehind, runewidth.StringWidth(aheadBehindText(row.AheadIntegration, row.BehindIntegration)))
	if full {
		cols.GrowDiff(ColumnBranchDiff, digits(row.BranchDiff.Added), digits(row.BranchDiff.Deleted))
	}
	cols.Grow(ColumnConflicts, 1)
	cols.Grow(ColumnStates, runewidth.StringWidth(statesText(row)))
	cols.Grow(ColumnPath, runewidth.StringWidth(row.WorktreePath))
	cols.Grow(ColumnUpstream, runewidth.StringWidth(upstreamText(row)))
	cols.Grow(ColumnTime, runewidth.StringWidth(timeText(row.CommitTime)))
	cols.Grow(ColumnCI, runewidth.StringWidth(cellText(ColumnCI, row)))
	cols.Grow(ColumnCommit, 7)
	cols.Grow(ColumnMessage, runewidth.StringWidth(row.CommitSubject))
}

func digits(n int) int {
	if n == 0 {
		return 1
	}
	return len(fmt.Sprintf("%d", n))
}

func branchText(row *enrich.Row) string {
	if row.Branch != "" {
		return row.Branch
	}
	if row.Head != "" {
		return string(row.Head)[:min(7, len(row.Head))] + " (detached)"
	}
	return ""
}

func aheadBehindText(ahead, behind int) string {
	if ahead == 0 && behind == 0 {
		return ""
	}
	return fmt.Sprintf("+%d -%d", ahead, behind)
}

func statesText(row *enrich.Row) string {
	s := row.Symbols
	s.HasConflicts = false // conflict glyph has its own column
	return s.Render()
}

func upstreamText(row *enrich.Row) string {
	if row.Upstream == "" {
		return ""
	}
	return row.Upstream
}

func timeText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// Row renders one data row against the resolved columns.
func Row(w io.Writer, cols *Columns, row *enrich.Row) {
	style := ui.NewStyle()
	if row.Dimmed {
		style = style.Faint(true)
	}

	var b strings.Builder
	col0 := 1
	for _, col := range cols.Visible() {
		pad(&b, col.Start-col0)
		text := cellText(col.Kind, row)
		b.WriteString(truncate(text, col.Width))
		col0 = col.Start + col.Width
	}

	fmt.Fprintln(w, style.Render(b.String()))
}

func cellText(kind ColumnKind, row *enrich.Row) string {
	switch kind {
	case ColumnBranch:
		return branchText(row)
	case ColumnWorkingDiff:
		return diffText(row.WorkDiff)
	case ColumnAheadBehind:
		return aheadBehindText(row.AheadIntegration, row.BehindIntegration)
	case ColumnBranchDiff:
		return diffText(row.BranchDiff)
	case ColumnConflicts:
		if row.HasConflict {
			return "!"
		}
		return ""
	case ColumnStates:
		return statesText(row)
	case ColumnPath:
		return row.WorktreePath
	case ColumnUpstream:
		return upstreamText(row)
	case ColumnTime:
		return timeText(row.CommitTime)
	case ColumnCI:
		if row.CI != nil {
			return string(row.CI.Status)
		}
		return ""
	case ColumnCommit:
		if len(row.Head) >= 7 {
			return string(row.Head)[:7]
		}
		return string(row.Head)
	case ColumnMessage:
		return row.CommitSubject
	default:
		return ""
	}
}

func diffText(d git.DiffStat) string {
	if d.Added == 0 && d.Deleted == 0 {
		return ""
	}
	return fmt.Sprintf("+%d -%d", d.Added, d.Deleted)
}

// truncate shortens s to fit within width visual columns, breaking at
// a word boundary where possible and appending a one-column ellipsis.
// Branch names are never truncated by callers (the branch column is
// sized to fit every branch by construction).
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s + strings.Repeat(" ", width-runewidth.StringWidth(s))
	}
	if width <= 1 {
		return "…"
	}

	limit := width - 1 // reserve one column for the ellipsis
	cut := 0
	lastBoundary := 0
	acc := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if acc+rw > limit {
			break
		}
		acc += rw
		cut = i + len(string(r))
		if r == ' ' {
			lastBoundary = cut
		}
	}
	if lastBoundary > 0 && lastBoundary != cut {
		cut = lastBoundary
	}
	return strings.TrimRight(s[:cut], " ") + "…"
}

// IsTTY reports whether w is a terminal, for the progressive-vs-batch
// render decision.
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
