// Package config loads worktrunk's layered configuration: built-in
// defaults, project settings committed to the repository, the user's
// own settings and approval ledger, and environment overrides — in
// that order, with CLI flags applied last by callers.
//
// The user config file is the single TOML document that also owns
// the approval ledger (see internal/ledger): worktrunk never writes
// two files for what the user experiences as one settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/prassanna-ravishankar/worktrunk/internal/ledger"
)

// HookSpec is one named command in a project's hook phase list.
type HookSpec struct {
	Name    string `toml:"name"`
	Command string `toml:"command"`
}

// Hooks groups a project's hook commands by the phase that runs them.
type Hooks struct {
	PostCreate []HookSpec `toml:"post-create"`
	PostStart  []HookSpec `toml:"post-start"`
	PostSwitch []HookSpec `toml:"post-switch"`
	PreCommit  []HookSpec `toml:"pre-commit"`
	PreMerge   []HookSpec `toml:"pre-merge"`
	PostMerge  []HookSpec `toml:"post-merge"`
	PreRemove  []HookSpec `toml:"pre-remove"`
}

// ForPhase returns the ordered hook list for a named phase, or nil if
// the phase name is unrecognized or empty.
func (h Hooks) ForPhase(phase string) []HookSpec {
	switch phase {
	case "post-create":
		return h.PostCreate
	case "post-start":
		return h.PostStart
	case "post-switch":
		return h.PostSwitch
	case "pre-commit":
		return h.PreCommit
	case "pre-merge":
		return h.PreMerge
	case "post-merge":
		return h.PostMerge
	case "pre-remove":
		return h.PreRemove
	default:
		return nil
	}
}

// projectFile is the shape of <repo_root>/.config/wt.toml.
type projectFile struct {
	PostCreate []HookSpec `toml:"post-create"`
	PostStart  []HookSpec `toml:"post-start"`
	PostSwitch []HookSpec `toml:"post-switch"`
	PreCommit  []HookSpec `toml:"pre-commit"`
	PreMerge   []HookSpec `toml:"pre-merge"`
	PostMerge  []HookSpec `toml:"post-merge"`
	PreRemove  []HookSpec `toml:"pre-remove"`
}

// LoadProject reads the project config at <repoRoot>/.config/wt.toml.
// A missing file yields empty Hooks, not an error.
func LoadProject(repoRoot string) (Hooks, error) {
	path := filepath.Join(repoRoot, ".config", "wt.toml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Hooks{}, nil
		}
		return Hooks{}, fmt.Errorf("read project config: %w", err)
	}

	var f projectFile
	if _, err := toml.Decode(string(raw), &f); err != nil {
		return Hooks{}, fmt.Errorf("parse project config %s: %w", path, err)
	}
	return Hooks{
		PostCreate: f.PostCreate,
		PostStart:  f.PostStart,
		PostSwitch: f.PostSwitch,
		PreCommit:  f.PreCommit,
		PreMerge:   f.PreMerge,
		PostMerge:  f.PostMerge,
		PreRemove:  f.PreRemove,
	}, nil
}

// LLMTool is the user-configured binary (and fixed arguments) used to
// draft a squash commit message.
type LLMTool struct {
	Command string
	Args    []string
}

const defaultWorktreePathTemplate = "{{ repo_root }}/../{{ repo }}.{{ branch }}"

// userFile is the TOML shape of the user config file: settings plus
// the approval ledger's own array-of-tables, sharing one document.
type userFile struct {
	WorktreePath string          `toml:"worktree-path"`
	LLM          userFileLLM     `toml:"llm"`
	Approvals    []ledger.Entry  `toml:"approvals"`
	Experiments  map[string]bool `toml:"experiments"`
}

type userFileLLM struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Store is the loaded, mutable user configuration, including the
// approval ledger. It is the only component that writes the user
// config file.
type Store struct {
	mu sync.Mutex

	path string

	WorktreePathTemplate string
	LLM                  LLMTool
	Approvals            *ledger.Set
	Experiments          map[string]bool
}

// Path returns the user config file's resolved path, for `wt config
// path`/`wt config edit`.
func (s *Store) Path() string { return s.path }

// ExperimentEnabled reports whether name is enabled in the user
// config, satisfying internal/cli/experiment.Enabler.
func (s *Store) ExperimentEnabled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Experiments[name]
}

// SetExperiment enables or disables name and persists the whole user
// config file, per `wt config set experiments.<name> <bool>`.
func (s *Store) SetExperiment(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Experiments == nil {
		s.Experiments = make(map[string]bool)
	}
	s.Experiments[name] = enabled
	return s.save()
}

// resolveUserConfigPath returns the path to the user config file,
// honoring WORKTRUNK_CONFIG_DIR as a test/override seam before falling
// back to the XDG base directory spec, mirroring the convention of
// never hard-coding a config path.
func resolveUserConfigPath() (string, error) {
	dir := os.Getenv("WORKTRUNK_CONFIG_DIR")
	if dir == "" {
		dir = filepath.Join(xdg.ConfigHome, "worktrunk")
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadUser loads the user config file, resolving its path per
// [resolveUserConfigPath]. A missing file yields defaults, not an
// error.
func LoadUser() (*Store, error) {
	path, err := resolveUserConfigPath()
	if err != nil {
		return nil, err
	}
	return loadUserFrom(path)
}

func loadUserFrom(path string) (*Store, error) {
	s := &Store{
		path:                 path,
		WorktreePathTemplate: defaultWorktreePathTemplate,
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f userFile
		if _, err := toml.Decode(string(raw), &f); err != nil {
			return nil, fmt.Errorf("parse user config %s: %w", path, err)
		}

		if f.WorktreePath != "" {
			s.WorktreePathTemplate = f.WorktreePath
		}
		s.LLM = LLMTool{Command: f.LLM.Command, Args: f.LLM.Args}
		s.Approvals = ledger.NewSet(f.Approvals)
		s.Experiments = f.Experiments
	case os.IsNotExist(err):
		s.Approvals = ledger.NewSet(nil)
	default:
		return nil, fmt.Errorf("read user config: %w", err)
	}

	if v := os.Getenv("WORKTRUNK_WORKTREE_PATH"); v != "" {
		s.WorktreePathTemplate = v
	}
	if v := os.Getenv("WORKTRUNK_LLM_COMMAND"); v != "" {
		s.LLM.Command = v
	}

	return s, nil
}

// IsApproved reports whether template has already been approved for
// projectID.
func (s *Store) IsApproved(projectID, template string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Approvals.IsApproved(projectID, template)
}

// Approve records template as approved for projectID and persists the
// whole user config file (settings plus ledger) atomically.
func (s *Store) Approve(projectID, template string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Approvals.Approve(projectID, template)
	return s.save()
}

// save writes the user config atomically: write to a temp file in the
// same directory, fsync, then rename over the destination. Must be
// called with s.mu held.
func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f := userFile{
		WorktreePath: s.WorktreePathTemplate,
		LLM:          userFileLLM{Command: s.LLM.Command, Args: s.LLM.Args},
		Approvals:    s.Approvals.Entries(),
		Experiments:  s.Experiments,
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(f); err != nil {
		tmp.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename config into place: %w", err)
	}
	return nil
}
