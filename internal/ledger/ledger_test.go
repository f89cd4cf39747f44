package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_emptyIsUnapproved(t *testing.T) {
	s := NewSet(nil)
	assert.False(t, s.IsApproved("github.com/acme/widget", "cargo test"))
}

func TestSet_approveIdempotent(t *testing.T) {
	s := NewSet(nil)
	s.Approve("github.com/acme/widget", "cargo test")
	s.Approve("github.com/acme/widget", "cargo test")
	assert.True(t, s.IsApproved("github.com/acme/widget", "cargo test"))
	assert.False(t, s.IsApproved("github.com/acme/widget", "cargo build"))

	entries := s.Entries()
	assert.Len(t, entries, 1)
	assert.Equal(t, []string{"cargo test"}, entries[0].Templates)
}

func TestNewSet_collapsesDuplicateEntries(t *testing.T) {
	s := NewSet([]Entry{
		{ID: "github.com/acme/widget", Templates: []string{"cargo test", "cargo test", "cargo build"}},
	})
	assert.True(t, s.IsApproved("github.com/acme/widget", "cargo test"))
	assert.True(t, s.IsApproved("github.com/acme/widget", "cargo build"))

	entries := s.Entries()
	assert.Len(t, entries, 1)
	assert.Equal(t, []string{"cargo build", "cargo test"}, entries[0].Templates)
}

func TestProjectID(t *testing.T) {
	tests := []struct {
		remote string
		want   string
		ok     bool
	}{
		{"https://github.com/acme/widget.git", "github.com/acme/widget", true},
		{"git@github.com:acme/widget.git", "github.com/acme/widget", true},
		{"ssh://git@gitlab.example.com/acme/widget", "gitlab.example.com/acme/widget", true},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ProjectID(tt.remote)
		assert.Equal(t, tt.ok, ok, tt.remote)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.remote)
		}
	}
}
