// Package tmpl renders hook and worktree-path templates over a closed
// set of variables, in two modes: shell-escaped (safe to hand to a
// shell) and literal (safe to use as a filesystem path).
package tmpl

import (
	"fmt"
	"strings"
	"text/template"

	"al.essio.dev/pkg/shellescape"
)

// Vars is the closed set of variables available to a template.
// Fields left as the zero value are simply unavailable to templates
// that don't reference them; Template.Expand does not require every
// field to be populated.
type Vars struct {
	Repo           string // repository directory leaf name
	Branch         string // branch name, '/' and '\' already replaced with '-'
	Worktree       string // absolute worktree path
	WorktreeName   string // basename of worktree path
	RepoRoot       string // absolute primary worktree path
	DefaultBranch  string // integration branch name
	Commit         string // HEAD sha
	ShortCommit    string // 7-char HEAD sha prefix
	Remote         string // primary remote name
	Upstream       string // "remote/branch", empty if none configured
	Target         string // mutation target branch, context-dependent
	Base           string // mutation base branch, context-dependent
	BaseWorktree   string // base worktree path, context-dependent
}

func (v Vars) asMap() map[string]string {
	return map[string]string{
		"repo":               v.Repo,
		"branch":             v.Branch,
		"worktree":           v.Worktree,
		"worktree_name":      v.WorktreeName,
		"repo_root":          v.RepoRoot,
		"default_branch":     v.DefaultBranch,
		"commit":             v.Commit,
		"short_commit":       v.ShortCommit,
		"remote":             v.Remote,
		"upstream":           v.Upstream,
		"target":             v.Target,
		"base":               v.Base,
		"base_worktree_path": v.BaseWorktree,
	}
}

// Mode selects how substituted values are encoded into the rendered
// output.
type Mode int

const (
	// Literal substitutes values verbatim. Use this for filesystem-path
	// templates such as the worktree-path template.
	Literal Mode = iota

	// ShellEscape wraps every substituted value so that shell
	// metacharacters ($, backticks, ;, |, quotes, newlines, spaces)
	// cannot escape the substitution boundary. Use this for hook
	// command templates that are handed to a shell.
	ShellEscape
)

// Template is a parsed, reusable template string.
type Template struct {
	raw  string
	tmpl *template.Template
}

// Parse compiles a template string for later expansion. The syntax is
// "{{ variable }}" over the variables listed in [Vars]; referencing an
// unknown variable is a parse error, matching a closed variable set.
func Parse(raw string) (*Template, error) {
	src, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", raw, err)
	}
	t, err := template.New("tmpl").
		Option("missingkey=error").
		Funcs(template.FuncMap{}).
		Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", raw, err)
	}
	return &Template{raw: raw, tmpl: t}, nil
}

// normalize rewrites the spec's documented "{{ var }}" placeholders
// (minijinja-style, bare identifiers) into Go template field lookups
// against a map, e.g. "{{ branch }}" -> "{{ index . \"branch\" }}".
func normalize(raw string) (string, error) {
	known := Vars{}.asMap()
	var out strings.Builder
	rest := raw
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			out.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			out.WriteString(rest)
			break
		}
		end += start

		out.WriteString(rest[:start])
		name := strings.TrimSpace(rest[start+2 : end])
		if _, ok := known[name]; !ok {
			return "", fmt.Errorf("unknown variable %q", name)
		}
		out.WriteString(fmt.Sprintf(`{{ index . "%s" }}`, name))
		rest = rest[end+2:]
	}
	return out.String(), nil
}

// String returns the original, unexpanded template text.
func (t *Template) String() string { return t.raw }

// Expand renders the template against vars in the given mode. The
// expander is deterministic and has no side effects; branch-name
// sanitisation is expected to have already happened at the call site
// that populated vars.Branch.
func (t *Template) Expand(vars Vars, mode Mode) (string, error) {
	values := vars.asMap()
	if mode == ShellEscape {
		escaped := make(map[string]string, len(values))
		for k, v := range values {
			escaped[k] = shellescape.Quote(v)
		}
		values = escaped
	}

	var buf strings.Builder
	if err := t.tmpl.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("expand template %q: %w", t.raw, err)
	}
	return buf.String(), nil
}

// Expand is a convenience wrapper that parses and expands raw in a
// single call. Prefer [Parse] when the same template is expanded
// repeatedly (e.g. once per worktree row).
func Expand(raw string, vars Vars, mode Mode) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.Expand(vars, mode)
}

// SanitizeBranch replaces path-hostile characters in a branch name so
// it can be used as (part of) a filesystem path component. It is
// idempotent: SanitizeBranch(SanitizeBranch(s)) == SanitizeBranch(s).
func SanitizeBranch(branch string) string {
	replacer := strings.NewReplacer("/", "-", `\`, "-")
	return replacer.Replace(branch)
}
