package hook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
)

func TestRun_sequentialFailFast(t *testing.T) {
	dir := t.TempDir()
	log := silog.Nop()

	commands := []Command{
		{Phase: "pre-commit", Name: "lint", Shell: "exit 0", Dir: dir},
		{Phase: "pre-commit", Name: "test", Shell: "exit 3", Dir: dir},
		{Phase: "pre-commit", Name: "never", Shell: "touch should-not-exist", Dir: dir},
	}

	err := Run(context.Background(), log, dir, commands, SequentialBlocking, FailFast)
	require.Error(t, err)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.ExitCode)
	assert.Equal(t, "test", failed.Name)
}

func TestRun_sequentialWarnContinues(t *testing.T) {
	dir := t.TempDir()
	log := silog.Nop()

	ran := []Command{
		{Phase: "post-start", Name: "a", Shell: "exit 1", Dir: dir},
		{Phase: "post-start", Name: "b", Shell: "exit 0", Dir: dir},
	}

	err := Run(context.Background(), log, dir, ran, SequentialBlocking, Warn)
	assert.NoError(t, err, "warn-mode post-start failures are swallowed")
}

func TestRun_warnPostMergeSurfacesFailure(t *testing.T) {
	dir := t.TempDir()
	log := silog.Nop()

	commands := []Command{
		{Phase: "post-merge", Name: "notify", Shell: "exit 7", Dir: dir},
	}

	err := Run(context.Background(), log, dir, commands, SequentialBlocking, Warn)
	require.Error(t, err)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 7, failed.ExitCode)
}
