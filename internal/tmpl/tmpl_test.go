package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_literal(t *testing.T) {
	out, err := Expand("{{ repo_root }}/.{{ repo }}.{{ branch }}", Vars{
		RepoRoot: "/home/user/widget",
		Repo:     "widget",
		Branch:   "feature-x",
	}, Literal)
	require.NoError(t, err)
	assert.Equal(t, "/home/user/widget/.widget.feature-x", out)
}

func TestExpand_shellEscape(t *testing.T) {
	out, err := Expand("cd {{ worktree }} && echo hi", Vars{
		Worktree: "/tmp/a b; rm -rf /",
	}, ShellEscape)
	require.NoError(t, err)
	assert.Equal(t, "cd '/tmp/a b; rm -rf /' && echo hi", out)
	assert.Contains(t, out, "echo hi")
}

func TestExpand_noVariables(t *testing.T) {
	// A template containing no variables expands to itself regardless
	// of the variable set.
	out, err := Expand("cargo test", Vars{Branch: "anything"}, ShellEscape)
	require.NoError(t, err)
	assert.Equal(t, "cargo test", out)
}

func TestSanitizeBranch_idempotent(t *testing.T) {
	for _, s := range []string{"feature/foo", `feature\bar`, "plain", "a/b\\c/d"} {
		once := SanitizeBranch(s)
		twice := SanitizeBranch(once)
		assert.Equal(t, once, twice)
	}
}
