package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/prassanna-ravishankar/worktrunk/internal/scanutil"
	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

// FileStatusCode specifies the status of a file in a diff.
type FileStatusCode string

// List of file status codes from
// https://git-scm.com/docs/git-diff-index#Documentation/git-diff-index.txt---diff-filterACDMRTUXB82308203.
const (
	FileUnchanged   FileStatusCode = ""
	FileAdded       FileStatusCode = "A"
	FileCopied      FileStatusCode = "C"
	FileDeleted     FileStatusCode = "D"
	FileModified    FileStatusCode = "M"
	FileRenamed     FileStatusCode = "R"
	FileTypeChanged FileStatusCode = "T"
	FileUnmerged    FileStatusCode = "U"
)

// FileStatus is a single file in a diff.
type FileStatus struct {
	// Status of the file.
	Status string

	// Path to the file relative to the tree root.
	Path string
}

// DiffWork compares the working tree with the index
// and returns an iterator over files that are different.
func (w *Worktree) DiffWork(ctx context.Context) iter.Seq2[FileStatus, error] {
	return func(yield func(FileStatus, error) bool) {
		cmd := w.gitCmd(ctx, "diff-files", "--name-status", "-z")
		var status string
		var expectingPath bool
		for line, err := range cmd.Scan(w.exec, scanutil.SplitNull) {
			if err != nil {
				yield(FileStatus{}, fmt.Errorf("git diff-files: %w", err))
				return
			}
			if len(line) == 0 {
				continue
			}

			if !expectingPath {
				// First part is the status
				status = string(line)
				expectingPath = true
			} else {
				// Second part is the path
				if !yield(FileStatus{
					Status: status,
					Path:   string(line),
				}, nil) {
					return
				}
				expectingPath = false
			}
		}
	}
}

// DiffIndex compares the index with the given tree
// and returns the list of files that are different.
// The treeish argument can be any valid tree-ish reference.
func (w *Worktree) DiffIndex(ctx context.Context, treeish string) ([]FileStatus, error) {
	cmd := w.gitCmd(ctx, "diff-index", "--cached", "--name-status", treeish)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}

	if err := cmd.Start(w.exec); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	files, err := parseDiffFileStatuses(out, w.log)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if err := cmd.Wait(w.exec); err != nil {
		return nil, fmt.Errorf("diff-index: %w", err)
	}

	return files, nil
}

// DiffStat is the added/deleted line counts for a diff, aggregated across
// all non-binary files. Binary files contribute zero to both counts.
type DiffStat struct {
	Added   int
	Deleted int
}

// WorkingTreeDiffStats reports added/deleted line counts between HEAD and
// the working tree (index + unstaged changes), via `git diff --numstat
// HEAD`. Untracked files are never included;
// [Worktree.ListUntrackedFiles] lists them separately.
func (w *Worktree) WorkingTreeDiffStats(ctx context.Context) (DiffStat, error) {
	return w.diffNumstat(ctx, "HEAD")
}

// WorkingTreeDiffStatsVsRef reports added/deleted line counts between ref
// and the working tree, including unstaged changes.
func (w *Worktree) WorkingTreeDiffStatsVsRef(ctx context.Context, ref string) (DiffStat, error) {
	return w.diffNumstat(ctx, ref)
}

func (w *Worktree) diffNumstat(ctx context.Context, ref string) (DiffStat, error) {
	out, err := w.gitCmd(ctx, "diff", "--numstat", ref).OutputString(w.exec)
	if err != nil {
		return DiffStat{}, fmt.Errorf("git diff --numstat: %w", err)
	}
	return parseNumstat(out), nil
}

// BranchDiffStats reports added/deleted line counts between base and head
// via `git diff --numstat base...head` (triple-dot: diff against their
// merge base, not a direct two-commit diff).
func (r *Repository) BranchDiffStats(ctx context.Context, base, head string) (DiffStat, error) {
	out, err := r.gitCmd(ctx, "diff", "--numstat", base+"..."+head).OutputString(r.exec)
	if err != nil {
		return DiffStat{}, fmt.Errorf("git diff --numstat: %w", err)
	}
	return parseNumstat(out), nil
}

// parseNumstat parses `git diff --numstat` output. Each line is
// "<added>\t<deleted>\t<path>"; binary files report "-" for both counts
// and contribute zero.
func parseNumstat(out string) DiffStat {
	var stat DiffStat
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			continue
		}
		if added, err := strconv.Atoi(fields[0]); err == nil {
			stat.Added += added
		}
		if deleted, err := strconv.Atoi(fields[1]); err == nil {
			stat.Deleted += deleted
		}
	}
	return stat
}

// DiffTree compares two trees and returns an iterator over files that are different.
// The treeish1 and treeish2 arguments can be any valid tree-ish references.
func (r *Repository) DiffTree(ctx context.Context, treeish1, treeish2 string) iter.Seq2[FileStatus, error] {
	return func(yield func(FileStatus, error) bool) {
		cmd := r.gitCmd(ctx, "diff-tree", "-r", "--name-status", "-z", treeish1, treeish2)
		var status string
		var expectingPath bool
		for line, err := range cmd.Scan(r.exec, scanutil.SplitNull) {
			if err != nil {
				yield(FileStatus{}, fmt.Errorf("git diff-tree: %w", err))
				return
			}
			if len(line) == 0 {
				continue
			}

			if !expectingPath {
				// First part is the status
				status = string(line)
				expectingPath = true
			} else {
				// Second part is the path
				if !yield(FileStatus{
					Status: status,
					Path:   string(line),
				}, nil) {
					return
				}
				expectingPath = false
			}
		}
	}
}

func parseDiffFileStatuses(r io.Reader, log *silog.Logger) ([]FileStatus, error) {
	var files []FileStatus
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		bs := scanner.Bytes()
		if len(bs) == 0 {
			continue
		}

		status, name, ok := bytes.Cut(bs, []byte{'\t'})
		if !ok {
			log.Warnf("invalid diff: %s", bs)
			continue
		}
		files = append(files, FileStatus{
			Status: string(status),
			Path:   string(name),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return files, nil
}
