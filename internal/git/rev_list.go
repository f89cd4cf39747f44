package git

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RevList iterates over the commits in a repository.
//
// Use this like bufio.Scanner:
//
//	for revList.Next() {
//		commit := revList.Commit()
//		// ...
//	}
//	if err := revList.Err(); err != nil {
//		// ...
//	}
type RevList struct {
	cmd  *gitCmd
	out  *bufio.Scanner
	err  error
	exec execer
}

// Next reports whether there is another commit in the list.
func (r *RevList) Next() bool {
	if r.out.Scan() {
		return true
	}

	if err := r.out.Err(); err != nil {
		// Reading output failed.
		// Kill the command.
		r.err = r.cmd.Kill(r.exec)
		return false
	}

	// Reached EOF.
	// Wait for the command to exit.
	r.err = r.cmd.Wait(r.exec)
	return false
}

// Commit returns the commit at the current position.
// Next must have been called before this.
func (r *RevList) Commit() string {
	return r.out.Text()
}

// Err returns errors encountered while iterating
// or waiting for the command to exit.
func (r *RevList) Err() error {
	return errors.Join(r.err, r.out.Err())
}

// ListCommits returns a list of commits in the range [start, stop).
func (r *Repository) ListCommits(ctx context.Context, start, stop string) (*RevList, error) {
	cmd := r.gitCmd(ctx, "rev-list", start, "--not", stop)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(r.exec); err != nil {
		return nil, err
	}

	return &RevList{
		cmd:  cmd,
		out:  bufio.NewScanner(out),
		exec: r.exec,
	}, nil
}

// AheadBehind reports how many commits head has that base lacks
// (ahead) and vice versa (behind), via
// `git rev-list --left-right --count base...head`. Both base and head
// must resolve to valid commits; an unreachable merge base between
// otherwise valid refs is not an error on Git's part and yields
// whatever counts `rev-list` reports (typically the full history on
// each side).
func (r *Repository) AheadBehind(ctx context.Context, base, head string) (ahead, behind int, err error) {
	out, err := r.gitCmd(ctx, "rev-list", "--left-right", "--count", base+"..."+head).
		OutputString(r.exec)
	if err != nil {
		return 0, 0, fmt.Errorf("git rev-list: %w", err)
	}

	behindStr, aheadStr, ok := strings.Cut(strings.TrimSpace(out), "\t")
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rev-list --count output: %q", out)
	}

	behind, err = strconv.Atoi(behindStr)
	if err != nil {
		return 0, 0, fmt.Errorf("parse behind count: %w", err)
	}
	ahead, err = strconv.Atoi(aheadStr)
	if err != nil {
		return 0, 0, fmt.Errorf("parse ahead count: %w", err)
	}

	return ahead, behind, nil
}

// MergeCommits lists the merge commits (more than one parent) in the
// range base..head, via `git rev-list --merges`. An empty result means
// the range is linear.
func (r *Repository) MergeCommits(ctx context.Context, base, head string) ([]string, error) {
	out, err := r.gitCmd(ctx, "rev-list", "--merges", base+".."+head).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git rev-list --merges: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// CommitSubjects lists the subject line of each commit in base..head,
// oldest first, via `git log --format=%s`.
func (r *Repository) CommitSubjects(ctx context.Context, base, head string) ([]string, error) {
	out, err := r.gitCmd(ctx, "log", "--format=%s", "--reverse", base+".."+head).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// CommitTimestamp reports the author date of ref's commit.
// Returns [InvalidReferenceError] if ref does not resolve.
func (r *Repository) CommitTimestamp(ctx context.Context, ref string) (time.Time, error) {
	out, err := r.gitCmd(ctx, "log", "-1", "--format=%at", ref).OutputString(r.exec)
	if err != nil {
		return time.Time{}, &InvalidReferenceError{Ref: ref}
	}

	epoch, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse commit timestamp %q: %w", out, err)
	}
	return time.Unix(epoch, 0), nil
}

// CommitSubject reports the first line of ref's commit message.
// Returns [InvalidReferenceError] if ref does not resolve.
func (r *Repository) CommitSubject(ctx context.Context, ref string) (string, error) {
	out, err := r.gitCmd(ctx, "log", "-1", "--format=%s", ref).OutputString(r.exec)
	if err != nil {
		return "", &InvalidReferenceError{Ref: ref}
	}
	return strings.TrimSpace(out), nil
}
