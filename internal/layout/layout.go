// Package layout computes the column widths and positions for the
// worktree/branch table, and renders it either in one pass or
// progressively as enrichment completes.
package layout

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// ColumnKind identifies one of the fixed table columns.
type ColumnKind int

const (
	ColumnBranch ColumnKind = iota
	ColumnWorkingDiff
	ColumnAheadBehind
	ColumnBranchDiff // opt-in via --full
	ColumnConflicts
	ColumnStates
	ColumnPath
	ColumnUpstream
	ColumnTime
	ColumnCI
	ColumnCommit
	ColumnMessage
)

// priority lists columns highest-priority first: the order the
// allocator walks when budgeting terminal width. ColumnBranchDiff is
// inserted right after ColumnAheadBehind only when --full is set; see
// [Columns].
var priority = []ColumnKind{
	ColumnBranch,
	ColumnWorkingDiff,
	ColumnAheadBehind,
	ColumnConflicts,
	ColumnStates,
	ColumnPath,
	ColumnUpstream,
	ColumnTime,
	ColumnCI,
	ColumnCommit,
	ColumnMessage,
}

const (
	messageMinWidth     = 20
	messagePreferWidth  = 50
	messageMaxWidth     = 100
	columnGap           = 2
)

var headers = map[ColumnKind]string{
	ColumnBranch:      "BRANCH",
	ColumnWorkingDiff: "DIFF",
	ColumnAheadBehind: "AHEAD/BEHIND",
	ColumnBranchDiff:  "BRANCH DIFF",
	ColumnConflicts:   "",
	ColumnStates:      "",
	ColumnPath:        "PATH",
	ColumnUpstream:    "UPSTREAM",
	ColumnTime:        "UPDATED",
	ColumnCI:          "CI",
	ColumnCommit:      "COMMIT",
	ColumnMessage:     "MESSAGE",
}

// Column is one resolved column: its content width (before the
// allocator decides visibility) and, once [Resolve] runs, its
// assigned start position.
type Column struct {
	Kind   ColumnKind
	Header string

	// Width is the column's natural content width, computed from the
	// widest cell (or the header, whichever is larger).
	Width int

	// PosWidth and NegWidth are set for diff-shaped columns: the max
	// digit count of the positive and negative parts respectively, so
	// values right-align under their sign.
	PosWidth, NegWidth int

	// Start is this column's absolute start position, assigned by
	// Resolve. Zero for an invisible column.
	Start int

	// Visible reports whether the allocator kept this column given
	// the available terminal width.
	Visible bool
}

// Columns holds the full column set for one render, in priority
// order, after widths have been computed from cell content but
// before Resolve has assigned visibility and positions.
type Columns struct {
	cols []*Column
}

// NewColumns builds the column set. full includes ColumnBranchDiff
// right after ColumnAheadBehind when set.
func NewColumns(full bool) *Columns {
	order := priority
	if full {
		order = make([]ColumnKind, 0, len(priority)+1)
		for _, k := range priority {
			order = append(order, k)
			if k == ColumnAheadBehind {
				order = append(order, ColumnBranchDiff)
			}
		}
	}

	cols := make([]*Column, len(order))
	for i, k := range order {
		cols[i] = &Column{Kind: k, Header: headers[k]}
	}
	return &Columns{cols: cols}
}

// Grow widens a column to fit a cell of the given visual width. For
// ColumnMessage, width tracks the elastic bounds separately; callers
// pass the raw message width and Resolve applies the min/preferred/max
// clamp.
func (c *Columns) Grow(kind ColumnKind, width int) {
	for _, col := range c.cols {
		if col.Kind == kind && width > col.Width {
			col.Width = width
		}
	}
}

// GrowDiff widens a diff-shaped column (ColumnWorkingDiff,
// ColumnBranchDiff) to accommodate the digit counts of a +added/-deleted
// pair, keeping the sign-aligned width invariant.
func (c *Columns) GrowDiff(kind ColumnKind, posDigits, negDigits int) {
	for _, col := range c.cols {
		if col.Kind != kind {
			continue
		}
		if posDigits > col.PosWidth {
			col.PosWidth = posDigits
		}
		if negDigits > col.NegWidth {
			col.NegWidth = negDigits
		}
		// "+NNN -NNN" : plus, digits, space, minus, digits
		width := col.PosWidth + col.NegWidth + 3
		if width > col.Width {
			col.Width = width
		}
	}
}

// Resolve assigns visibility and start positions given the available
// terminal width. Each column's header floors its width (invariant 3
// in the spec's testable-properties list).
func (c *Columns) Resolve(termWidth int) {
	remaining := termWidth
	pos := 1 // 1-indexed so Start==0 unambiguously means "invisible"
	first := true

	for _, col := range c.cols {
		if w := runewidth.StringWidth(col.Header); w > col.Width {
			col.Width = w
		}

		if col.Kind == ColumnMessage {
			w := col.Width
			if w < messageMinWidth {
				w = messagePreferWidth
			}
			if w > messageMaxWidth {
				w = messageMaxWidth
			}
			if remaining > w {
				w = min(remaining, messageMaxWidth)
			}
			col.Width = w
		}

		need := col.Width
		gap := 0
		if !first {
			gap = columnGap
		}
		if need+gap > remaining {
			col.Visible = false
			col.Start = 0
			continue
		}

		remaining -= need + gap
		pos += gap
		col.Visible = true
		col.Start = pos
		pos += need
		first = false
	}
}

// Visible returns the resolved columns in display order, skipping
// invisible ones.
func (c *Columns) Visible() []*Column {
	out := make([]*Column, 0, len(c.cols))
	for _, col := range c.cols {
		if col.Visible {
			out = append(out, col)
		}
	}
	return out
}

// HeaderLine renders the header row using the resolved column
// positions.
func (c *Columns) HeaderLine() string {
	var b strings.Builder
	col0 := 1
	for _, col := range c.Visible() {
		pad(&b, col.Start-col0)
		b.WriteString(col.Header)
		col0 = col.Start + runewidth.StringWidth(col.Header)
	}
	return b.String()
}

func pad(b *strings.Builder, n int) {
	for range n {
		b.WriteByte(' ')
	}
}
