package git

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// BranchState describes a branch's relationship to the integration
// branch, independent of ahead/behind counts.
type BranchState int

const (
	BranchStateNone BranchState = iota
	BranchStateMatchesMain
	BranchStateNoCommits
)

func (s BranchState) String() string {
	switch s {
	case BranchStateMatchesMain:
		return "≡"
	case BranchStateNoCommits:
		return "∅"
	default:
		return ""
	}
}

// GitOperation is an in-progress operation detected from worktree state
// (MERGE_HEAD, rebase-merge/, rebase-apply/).
type GitOperation int

const (
	GitOperationNone GitOperation = iota
	GitOperationRebase
	GitOperationMerge
)

func (o GitOperation) String() string {
	switch o {
	case GitOperationRebase:
		return "↻"
	case GitOperationMerge:
		return "⋈"
	default:
		return ""
	}
}

// MainDivergence is a branch's ahead/behind relationship to the
// integration branch, collapsed to a tagged variant.
type MainDivergence int

const (
	MainDivergenceNone MainDivergence = iota
	MainDivergenceAhead
	MainDivergenceBehind
	MainDivergenceDiverged
)

func (d MainDivergence) String() string {
	switch d {
	case MainDivergenceAhead:
		return "↑"
	case MainDivergenceBehind:
		return "↓"
	case MainDivergenceDiverged:
		return "↕"
	default:
		return ""
	}
}

// DivergenceFrom classifies an (ahead, behind) pair into a divergence
// variant: both zero is None, only ahead is Ahead, only behind is
// Behind, and both non-zero is Diverged.
func DivergenceFrom(ahead, behind int) MainDivergence {
	switch {
	case ahead > 0 && behind > 0:
		return MainDivergenceDiverged
	case ahead > 0:
		return MainDivergenceAhead
	case behind > 0:
		return MainDivergenceBehind
	default:
		return MainDivergenceNone
	}
}

// UpstreamDivergence is a branch's ahead/behind relationship to its
// upstream tracking branch.
type UpstreamDivergence int

const (
	UpstreamDivergenceNone UpstreamDivergence = iota
	UpstreamDivergenceAhead
	UpstreamDivergenceBehind
	UpstreamDivergenceDiverged
)

func (d UpstreamDivergence) String() string {
	switch d {
	case UpstreamDivergenceAhead:
		return "⇡"
	case UpstreamDivergenceBehind:
		return "⇣"
	case UpstreamDivergenceDiverged:
		return "⇅"
	default:
		return ""
	}
}

// UpstreamDivergenceFrom is the UpstreamDivergence analogue of
// DivergenceFrom.
func UpstreamDivergenceFrom(ahead, behind int) UpstreamDivergence {
	switch {
	case ahead > 0 && behind > 0:
		return UpstreamDivergenceDiverged
	case ahead > 0:
		return UpstreamDivergenceAhead
	case behind > 0:
		return UpstreamDivergenceBehind
	default:
		return UpstreamDivergenceNone
	}
}

// StatusSymbols is the fixed-position symbol set described in the
// status-column section of the listing design: positions 0a-0d are
// booleans/sets, positions 1-2 are mutually-exclusive divergence
// variants, and position 3+ is a set of working-tree symbols.
type StatusSymbols struct {
	HasConflicts      bool
	BranchState       BranchState
	GitOperation      GitOperation
	WorktreeAttrs     string // any combination of "◇" bare, "⊠" locked, "⚠" prunable
	MainDivergence    MainDivergence
	UpstreamDivergence UpstreamDivergence
	WorkingTree       string // any combination of "?!+»✘"
}

// IsEmpty reports whether every position is at its zero value.
func (s StatusSymbols) IsEmpty() bool {
	return !s.HasConflicts &&
		s.BranchState == BranchStateNone &&
		s.GitOperation == GitOperationNone &&
		s.WorktreeAttrs == "" &&
		s.MainDivergence == MainDivergenceNone &&
		s.UpstreamDivergence == UpstreamDivergenceNone &&
		s.WorkingTree == ""
}

// Render renders the symbols into their fixed-position string. A space
// is emitted for an empty position only when a later, non-empty
// position follows it — trailing empty positions are elided entirely.
func (s StatusSymbols) Render() string {
	if s.IsEmpty() {
		return ""
	}

	hasPost0a := s.BranchState != BranchStateNone ||
		s.GitOperation != GitOperationNone ||
		s.WorktreeAttrs != "" ||
		s.MainDivergence != MainDivergenceNone ||
		s.UpstreamDivergence != UpstreamDivergenceNone ||
		s.WorkingTree != ""
	hasPost0b := s.GitOperation != GitOperationNone ||
		s.WorktreeAttrs != "" ||
		s.MainDivergence != MainDivergenceNone ||
		s.UpstreamDivergence != UpstreamDivergenceNone ||
		s.WorkingTree != ""
	hasPost0c := s.WorktreeAttrs != "" ||
		s.MainDivergence != MainDivergenceNone ||
		s.UpstreamDivergence != UpstreamDivergenceNone ||
		s.WorkingTree != ""
	hasPost0d := s.MainDivergence != MainDivergenceNone ||
		s.UpstreamDivergence != UpstreamDivergenceNone ||
		s.WorkingTree != ""

	var b strings.Builder
	b.Grow(12)

	if s.HasConflicts {
		b.WriteByte('=')
	} else if hasPost0a {
		b.WriteByte(' ')
	}

	if str := s.BranchState.String(); str != "" {
		b.WriteString(str)
	} else if hasPost0b {
		b.WriteByte(' ')
	}

	if str := s.GitOperation.String(); str != "" {
		b.WriteString(str)
	} else if hasPost0c {
		b.WriteByte(' ')
	}

	if s.WorktreeAttrs != "" {
		b.WriteString(s.WorktreeAttrs)
	} else if hasPost0d {
		b.WriteByte(' ')
	}

	if str := s.MainDivergence.String(); str != "" {
		b.WriteString(str)
	} else if s.UpstreamDivergence != UpstreamDivergenceNone || s.WorkingTree != "" {
		b.WriteByte(' ')
	}

	if str := s.UpstreamDivergence.String(); str != "" {
		b.WriteString(str)
	} else if s.WorkingTree != "" {
		b.WriteByte(' ')
	}

	b.WriteString(s.WorkingTree)

	return b.String()
}

// WorkingTreeStatus is the result of interpreting `git status --porcelain`
// for a single worktree: whether it's dirty, and the derived working-tree
// symbol set (position 3+; conflict detection feeds HasConflicts).
type WorkingTreeStatus struct {
	Dirty         bool
	HasConflicts  bool
	WorkingTree   string // any combination of "?!+»✘", in that fixed order
}

// StatusPorcelain runs `git status --porcelain` in the worktree and
// classifies the output in a single pass, per the interpretation rules:
// U/D-D/A-A lines are conflicts; "??" is untracked; a worktree-status 'M'
// is modified; index-status A/M/C is staged; index-status R is renamed;
// index-status D or worktree-status D is deleted. Any line at all means
// the worktree is dirty.
func (w *Worktree) StatusPorcelain(ctx context.Context) (WorkingTreeStatus, error) {
	cmd := w.gitCmd(ctx, "status", "--porcelain")
	out, err := cmd.StdoutPipe()
	if err != nil {
		return WorkingTreeStatus{}, fmt.Errorf("pipe: %w", err)
	}

	if err := cmd.Start(w.exec); err != nil {
		return WorkingTreeStatus{}, fmt.Errorf("start: %w", err)
	}

	status, err := parseStatusPorcelain(out)
	if err != nil {
		return WorkingTreeStatus{}, fmt.Errorf("parse: %w", err)
	}

	if err := cmd.Wait(w.exec); err != nil {
		return WorkingTreeStatus{}, fmt.Errorf("git status: %w", err)
	}

	return status, nil
}

func parseStatusPorcelain(stdout io.Reader) (WorkingTreeStatus, error) {
	var (
		status                                                      WorkingTreeStatus
		untracked, modified, staged, renamed, deleted bool
	)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 2 {
			continue
		}
		status.Dirty = true

		indexStatus, worktreeStatus := line[0], line[1]

		if indexStatus == 'U' || worktreeStatus == 'U' ||
			(indexStatus == 'D' && worktreeStatus == 'D') ||
			(indexStatus == 'A' && worktreeStatus == 'A') {
			status.HasConflicts = true
		}
		if indexStatus == '?' && worktreeStatus == '?' {
			untracked = true
		}
		if worktreeStatus == 'M' {
			modified = true
		}
		if indexStatus == 'A' || indexStatus == 'M' || indexStatus == 'C' {
			staged = true
		}
		if indexStatus == 'R' {
			renamed = true
		}
		if indexStatus == 'D' || worktreeStatus == 'D' {
			deleted = true
		}
	}
	if err := scanner.Err(); err != nil {
		return WorkingTreeStatus{}, fmt.Errorf("scan status: %w", err)
	}

	var wt strings.Builder
	if untracked {
		wt.WriteByte('?')
	}
	if modified {
		wt.WriteByte('!')
	}
	if staged {
		wt.WriteByte('+')
	}
	if renamed {
		wt.WriteString("»")
	}
	if deleted {
		wt.WriteString("✘")
	}
	status.WorkingTree = wt.String()

	return status, nil
}
