package layout

import (
	"fmt"
	"io"
	"os"

	"github.com/prassanna-ravishankar/worktrunk/internal/enrich"
)

// SkeletonRow renders a placeholder row before that row's enrichment
// has completed: the branch cell is filled (it's known from the
// worktree listing before enrichment runs), every other cell is a "·"
// placeholder written without styling.
func SkeletonRow(w io.Writer, cols *Columns, branch string) {
	var out string
	col0 := 1
	for _, col := range cols.Visible() {
		for range col.Start - col0 {
			out += " "
		}
		if col.Kind == ColumnBranch {
			out += truncate(branch, col.Width)
		} else {
			out += truncate("·", col.Width)
		}
		col0 = col.Start + col.Width
	}
	fmt.Fprintln(w, out)
}

// Skeleton prints one placeholder row per item, in final display
// order, and reports whether WT_SKELETON_ONLY requested an early
// return (used by the benchmark suite to measure skeleton latency in
// isolation).
func Skeleton(w io.Writer, cols *Columns, branches []string) (stop bool) {
	for _, b := range branches {
		SkeletonRow(w, cols, b)
	}
	return os.Getenv("WT_SKELETON_ONLY") != ""
}

// FillInPlace rewrites every skeleton row with its enriched content,
// moving the cursor back to the top of the table first. rows must be
// in the same order the skeleton was printed in.
func FillInPlace(w io.Writer, cols *Columns, rows []*enrich.Row) {
	n := len(rows)
	if n == 0 {
		return
	}
	fmt.Fprintf(w, "\x1b[%dA", n)
	for _, row := range rows {
		fmt.Fprint(w, "\x1b[2K")
		Row(w, cols, row)
	}
}
