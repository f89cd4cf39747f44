// Package ci provides CI-status lookup for branches via external
// code-host CLIs (gh, glab), matching the plug-in shape used by each
// provider. Providers probe external CLIs, cache within the process,
// and surface retriable errors as [StatusError] so they render as a
// warning rather than silently becoming "no CI".
package ci

import (
	"context"
	"sync"
)

// Status is the outcome of a CI lookup for one branch.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusRunning   Status = "running"
	StatusFailed    Status = "failed"
	StatusConflicts Status = "conflicts"
	StatusNoCI      Status = "no-ci"
	StatusError     Status = "error"
)

// Source identifies where the status came from.
type Source string

const (
	SourcePullRequest Source = "pull-request"
	SourceBranch      Source = "branch"
)

// PrStatus is the result a [Provider] reports for one branch.
type PrStatus struct {
	Status  Status
	Source  Source
	IsStale bool
	URL     string
}

// Provider is a capability that looks up CI status for a branch on a
// specific forge. Implementations probe an external CLI (gh, glab);
// they never speak the forge's HTTP API directly, keeping the core
// free of auth/token concerns.
type Provider interface {
	// Name identifies the provider, e.g. "github" or "gitlab".
	Name() string

	// Detect reports the CI status of branch at headSHA within repoIdentity
	// (e.g. "owner/repo"). Returns (nil, nil) if there is nothing to
	// report (no PR, no CI configured).
	Detect(ctx context.Context, repoIdentity, branch, headSHA string) (*PrStatus, error)
}

// cacheKey identifies one lookup for process-lifetime memoisation.
type cacheKey struct {
	provider string
	repo     string
	branch   string
	head     string
}

// CachingProvider wraps a [Provider] with a process-lifetime memo so
// repeated lookups for the same (repo, branch, head) within a single
// invocation only probe the external CLI once.
type CachingProvider struct {
	inner Provider

	mu    sync.Mutex
	cache map[cacheKey]*PrStatus
}

// NewCachingProvider wraps inner with an in-memory cache.
func NewCachingProvider(inner Provider) *CachingProvider {
	return &CachingProvider{inner: inner, cache: make(map[cacheKey]*PrStatus)}
}

func (c *CachingProvider) Name() string { return c.inner.Name() }

// Detect memoises lookups. A retriable error is not cached: the next
// Detect call for the same key probes again rather than pinning a
// transient failure in place for the rest of the process.
func (c *CachingProvider) Detect(ctx context.Context, repoIdentity, branch, headSHA string) (*PrStatus, error) {
	key := cacheKey{provider: c.inner.Name(), repo: repoIdentity, branch: branch, head: headSHA}

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	status, err := c.inner.Detect(ctx, repoIdentity, branch, headSHA)
	if err != nil {
		return &PrStatus{Status: StatusError}, nil //nolint:nilerr // surfaced as a status, not an error
	}

	c.mu.Lock()
	c.cache[key] = status
	c.mu.Unlock()
	return status, nil
}
