// Package ledger tracks which hook command templates a user has
// approved for a project, so hooks declared in project configuration
// only ever prompt once per template. It holds pure in-memory set
// logic; persistence lives in internal/config, which embeds an
// approval table alongside the rest of the user's settings in one
// TOML file.
package ledger

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Entry is the on-disk representation of one project's approvals.
type Entry struct {
	ID        string   `toml:"id"`
	Templates []string `toml:"templates"`
}

// Set is the mutex-guarded in-memory record of per-project approvals.
type Set struct {
	mu   sync.Mutex
	data map[string]map[string]struct{} // project id -> template -> {}
}

// NewSet builds a Set from the entries decoded out of a config file.
// Duplicate templates within an entry are collapsed.
func NewSet(entries []Entry) *Set {
	s := &Set{data: make(map[string]map[string]struct{})}
	for _, entry := range entries {
		set := s.data[entry.ID]
		if set == nil {
			set = make(map[string]struct{})
			s.data[entry.ID] = set
		}
		for _, tmpl := range entry.Templates {
			set[tmpl] = struct{}{}
		}
	}
	return s
}

// IsApproved reports whether template has already been approved for
// the given project.
func (s *Set) IsApproved(projectID, template string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.data[projectID]
	if !ok {
		return false
	}
	_, ok = set[template]
	return ok
}

// Approve records template as approved for projectID. Approving an
// already-approved template is a no-op. Callers are responsible for
// persisting the updated set (see config.Store.Approve).
func (s *Set) Approve(projectID, template string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.data[projectID]
	if set == nil {
		set = make(map[string]struct{})
		s.data[projectID] = set
	}
	set[template] = struct{}{}
}

// Entries dumps the set back into the sorted, deterministic form the
// config file stores, for re-encoding on save.
func (s *Set) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		templates := make([]string, 0, len(s.data[id]))
		for tmpl := range s.data[id] {
			templates = append(templates, tmpl)
		}
		sort.Strings(templates)
		out = append(out, Entry{ID: id, Templates: templates})
	}
	return out
}

var _scpLike = regexp.MustCompile(`^(?:[\w.-]+@)?([\w.-]+):(.+?)(?:\.git)?/?$`)

// ProjectID canonicalises a remote URL into "host/owner/repo" form.
// Both scp-like ("git@github.com:owner/repo.git") and URL-like
// ("https://github.com/owner/repo.git", "ssh://git@host/owner/repo")
// remotes are accepted. If remoteURL is empty (no remote configured),
// callers should fall back to the absolute path of the primary
// worktree instead of calling this function.
func ProjectID(remoteURL string) (string, bool) {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return "", false
	}

	if u, err := url.Parse(remoteURL); err == nil && u.Host != "" {
		path := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/"), ".git")
		if path != "" {
			return u.Host + "/" + path, true
		}
	}

	if m := _scpLike.FindStringSubmatch(remoteURL); m != nil {
		host, path := m[1], strings.Trim(m[2], "/")
		if host != "" && path != "" {
			return host + "/" + path, true
		}
	}

	return "", false
}
