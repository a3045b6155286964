package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsharness/harness/internal/shell"
)

type fakeRunner struct {
	commands []shell.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd shell.Command) error {
	f.commands = append(f.commands, cmd)
	return nil
}

func TestUpdateSubmodules(t *testing.T) {
	runner := &fakeRunner{}

	require.NoError(t, UpdateSubmodules(context.Background(), runner, "/repo"))

	require.Len(t, runner.commands, 1)
	assert.Equal(t, "git submodule update --init --recursive", runner.commands[0].String())
	assert.Equal(t, "/repo", runner.commands[0].Dir)
}
