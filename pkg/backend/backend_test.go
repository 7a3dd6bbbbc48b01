package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbridge/pkgmgr-mcp/pkg/executor"
	"github.com/osbridge/pkgmgr-mcp/pkg/executor/executortest"
)

func TestNewBaseConfiguredPathBypassesLookup(t *testing.T) {
	t.Parallel()

	// choco is deliberately absent from the fake's PATH.
	fake := &executortest.Fake{
		Handler: func(string, []string) (*executor.CommandResult, error) {
			return &executor.CommandResult{ExitCode: 0}, nil
		},
	}
	b := NewBase("choco", `C:\tools\choco\choco.exe`, fake, time.Minute)
	assert.True(t, b.Available())

	_, mcpErr := b.Run(context.Background(), []string{"list"})
	require.Nil(t, mcpErr)

	call := fake.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, `C:\tools\choco\choco.exe`, call.Name)
}

func TestNewBaseFallsBackToPathLookup(t *testing.T) {
	t.Parallel()

	fake := executortest.WithPath("choco", &executor.CommandResult{ExitCode: 0})
	b := NewBase("choco", "", fake, time.Minute)
	assert.True(t, b.Available())
	assert.Equal(t, "/usr/bin/choco", b.Path)
}

func TestNewBaseMissingEverywhere(t *testing.T) {
	t.Parallel()

	b := NewBase("choco", "", &executortest.Fake{}, time.Minute)
	assert.False(t, b.Available())
}
