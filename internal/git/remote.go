package git

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// ListRemotes returns a list of remotes for the repository.
func (r *Repository) ListRemotes(ctx context.Context) ([]string, error) {
	cmd := r.gitCmd(ctx, "remote")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stdout: %w", err)
	}

	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	var remotes []string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		remotes = append(remotes, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("git remote: %w", err)
	}

	return remotes, nil
}

// RemoteURL reports the URL of a known Git remote.
func (r *Repository) RemoteURL(ctx context.Context, remote string) (string, error) {
	url, err := r.gitCmd(ctx, "remote", "get-url", remote).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("remote get-url: %w", err)
	}
	return url, nil
}

// RemoteDefaultBranch reports the default branch of a remote.
// The remote must be known to the repository.
func (r *Repository) RemoteDefaultBranch(ctx context.Context, remote string) (string, error) {
	ref, err := r.gitCmd(
		ctx, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD").
		OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("symbolic-ref: %w", err)
	}

	ref = strings.TrimPrefix(ref, remote+"/")
	return ref, nil
}

// PrimaryRemote picks the remote to treat as canonical: "origin" if
// configured, else "upstream", else the first remote in `git remote`
// order. Returns an empty string if the repository has no remotes.
func (r *Repository) PrimaryRemote(ctx context.Context) (string, error) {
	remotes, err := r.ListRemotes(ctx)
	if err != nil {
		return "", fmt.Errorf("list remotes: %w", err)
	}
	if len(remotes) == 0 {
		return "", nil
	}

	for _, preferred := range []string{"origin", "upstream"} {
		if slices.Contains(remotes, preferred) {
			return preferred, nil
		}
	}
	return remotes[0], nil
}

// DefaultBranch resolves the repository's integration branch.
//
// It first tries the cached symbolic ref for remote, falling back to
// querying the remote directly with `ls-remote --symref` and caching
// the result for next time. If remote is empty or both lookups fail,
// and exactly one local branch exists, that branch is inferred as the
// default.
// Otherwise it returns [NoDefaultBranchError].
func (r *Repository) DefaultBranch(ctx context.Context, remote string) (string, error) {
	if remote != "" {
		if branch, err := r.RemoteDefaultBranch(ctx, remote); err == nil {
			return branch, nil
		}

		branch, err := r.queryRemoteDefaultBranch(ctx, remote)
		if err == nil {
			return branch, nil
		}
		r.log.Debug("Could not query remote HEAD", "remote", remote, "error", err)
	}

	branches, err := r.LocalBranches(ctx)
	if err != nil {
		return "", fmt.Errorf("list local branches: %w", err)
	}
	if len(branches) == 1 {
		return branches[0], nil
	}

	return "", &NoDefaultBranchError{}
}

// queryRemoteDefaultBranch asks the remote directly for its HEAD
// symref via `ls-remote --symref`, and writes the result to
// refs/remotes/<remote>/HEAD so subsequent calls hit the cache.
func (r *Repository) queryRemoteDefaultBranch(ctx context.Context, remote string) (string, error) {
	out, err := r.gitCmd(ctx, "ls-remote", "--symref", remote, "HEAD").OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("ls-remote --symref: %w", err)
	}

	var branch string
	for _, line := range strings.Split(out, "\n") {
		if ref, ok := strings.CutPrefix(line, "ref: refs/heads/"); ok {
			if name, _, ok := strings.Cut(ref, "\t"); ok {
				branch = name
			}
			break
		}
	}
	if branch == "" {
		return "", fmt.Errorf("no HEAD symref reported by %s", remote)
	}

	if err := r.gitCmd(ctx, "symbolic-ref",
		"refs/remotes/"+remote+"/HEAD", "refs/remotes/"+remote+"/"+branch).
		Run(r.exec); err != nil {
		r.log.Debug("Failed to cache remote HEAD symref", "remote", remote, "error", err)
	}

	return branch, nil
}

// RemoteRef is a reference in a remote Git repository.
type RemoteRef struct {
	// Name is the full name of the reference.
	// For example "refs/heads/main".
	Name string

	// Hash is the Git object hash that the reference points to.
	Hash Hash
}

// ListRemoteRefsOptions control the behavior of ListRemoteRefs.
type ListRemoteRefsOptions struct {
	// Heads filters the references to only those under refs/heads.
	Heads bool

	// Patterns specifies additional filters on the reference names.
	Patterns []string
}

// ListRemoteRefs lists references in a remote Git repository
// that match the given options.
func (r *Repository) ListRemoteRefs(
	ctx context.Context, remote string, opts *ListRemoteRefsOptions,
) iter.Seq2[RemoteRef, error] {
	if opts == nil {
		opts = &ListRemoteRefsOptions{}
	}

	args := []string{"ls-remote", "--quiet"}
	if opts.Heads {
		args = append(args, "--heads")
	}
	args = append(args, remote)
	args = append(args, opts.Patterns...)

	return func(yield func(RemoteRef, error) bool) {
		cmd := r.gitCmd(ctx, args...)
		out, err := cmd.StdoutPipe()
		if err != nil {
			yield(RemoteRef{}, fmt.Errorf("pipe stdout: %w", err))
			return
		}

		if err := cmd.Start(r.exec); err != nil {
			yield(RemoteRef{}, fmt.Errorf("start: %w", err))
			return
		}
		var finished bool
		defer func() {
			if !finished {
				_ = cmd.Kill(r.exec)
			}
		}()

		scanner := bufio.NewScanner(out)
		for scanner.Scan() {
			// Each line is in the form:
			//
			//	<hash> TAB <ref>
			line := scanner.Text()
			oid, ref, ok := strings.Cut(line, "\t")
			if !ok {
				r.log.Warn("Bad ls-remote output", "line", line, "error", "missing a tab")
				continue
			}

			if !yield(RemoteRef{
				Name: ref,
				Hash: Hash(oid),
			}, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(RemoteRef{}, fmt.Errorf("scan: %w", err))
			return
		}

		if err := cmd.Wait(r.exec); err != nil {
			yield(RemoteRef{}, fmt.Errorf("git ls-remote: %w", err))
			return
		}

		finished = true
	}
}
