package winget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbridge/pkgmgr-mcp/pkg/executor"
	"github.com/osbridge/pkgmgr-mcp/pkg/executor/executortest"
	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

func newTestWinget(res *executor.CommandResult) (*Winget, *executortest.Fake) {
	fake := executortest.WithPath("winget", res)
	return New(fake, "", 30*time.Second), fake
}

func TestInstallComposesArgumentVector(t *testing.T) {
	t.Parallel()

	w, fake := newTestWinget(&executor.CommandResult{ExitCode: 0, Stdout: "Successfully installed\n"})
	result, err := w.Install(context.Background(), types.PackageSpec{ID: "Git.Git", Version: "2.40.0"})
	require.NoError(t, err)
	assert.False(t, result.NoOp)
	assert.Equal(t, "Git.Git", result.Package.ID)

	call := fake.LastCall()
	require.NotNil(t, call)
	assert.Contains(t, call.Args, "--id")
	assert.Contains(t, call.Args, "Git.Git")
	assert.Contains(t, call.Args, "--version")
	assert.Contains(t, call.Args, "2.40.0")
	assert.NotContains(t, call.Args, "Git.Git --version") // no string concatenation
}

func TestInstallAlreadyInstalledExitCode(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: exitAlreadyInstalled})
	result, err := w.Install(context.Background(), types.PackageSpec{ID: "Git.Git", Version: "2.40.0"})
	require.NoError(t, err)
	assert.True(t, result.NoOp)
	assert.Contains(t, result.Note, types.NoOpNote)
	assert.Equal(t, "2.40.0", result.Package.InstalledVersion)
}

func TestInstallNoApplicableUpgradeText(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: 0, Stdout: "No applicable upgrade found.\n"})
	result, err := w.Install(context.Background(), types.PackageSpec{ID: "Git.Git"})
	require.NoError(t, err)
	assert.True(t, result.NoOp)
}

func TestUninstallNotInstalledIsNotFound(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: exitNoApplicationsFound, Stdout: "No installed package found matching input criteria.\n"})
	_, err := w.Uninstall(context.Background(), "Nope.Nope")
	require.Error(t, err)
	assert.Equal(t, types.ErrKindNotFound, err.(*types.MCPError).Kind)
}

func TestSearchEmptySetIsNotMalformed(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: exitNoApplicationsFound, Stdout: "No package found matching input criteria.\n"})
	got, err := w.Search(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnrecognizedFailureIncludesStderrExcerpt(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: 42, Stderr: "0x80070005 access is denied"})
	_, err := w.Install(context.Background(), types.PackageSpec{ID: "Git.Git"})
	require.Error(t, err)
	mcpErr := err.(*types.MCPError)
	assert.Equal(t, types.ErrKindBackendExecutionFailed, mcpErr.Kind)
	assert.Contains(t, mcpErr.Detail, "access is denied")
}

func TestAddSourceDuplicateIsInvalidRequest(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: exitSourceNameExists})
	_, err := w.AddSource(context.Background(), types.SourceSpec{Name: "internal", URL: "https://pkg.example/"})
	require.Error(t, err)
	assert.Equal(t, types.ErrKindInvalidRequest, err.(*types.MCPError).Kind)
}

func TestAddSourceRejectsCredentials(t *testing.T) {
	t.Parallel()

	w, fake := newTestWinget(&executor.CommandResult{ExitCode: 0})
	_, err := w.AddSource(context.Background(), types.SourceSpec{Name: "internal", URL: "https://pkg.example/", Password: "hunter2"})
	require.Error(t, err)
	assert.Equal(t, types.ErrKindInvalidRequest, err.(*types.MCPError).Kind)
	assert.NotContains(t, err.Error(), "hunter2")
	assert.Empty(t, fake.Calls()) // rejected before any subprocess ran
}

func TestAddSourceTypeSelection(t *testing.T) {
	t.Parallel()

	w, fake := newTestWinget(&executor.CommandResult{ExitCode: 0})
	_, err := w.AddSource(context.Background(), types.SourceSpec{Name: "internal", URL: "https://pkg.example/"})
	require.NoError(t, err)
	call := fake.LastCall()
	require.NotNil(t, call)
	assert.Contains(t, call.Args, "Microsoft.Rest") // vendor default

	_, err = w.AddSource(context.Background(), types.SourceSpec{
		Name: "preindexed",
		URL:  "https://pkg.example/preindexed",
		Type: "Microsoft.PreIndexed.Package",
	})
	require.NoError(t, err)
	call = fake.LastCall()
	require.NotNil(t, call)
	assert.Contains(t, call.Args, "Microsoft.PreIndexed.Package")
	assert.NotContains(t, call.Args, "Microsoft.Rest")
}

func TestListSourcesNoneConfigured(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: 0, Stdout: "There are no sources configured.\n"})
	got, err := w.ListSources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRemoveSourceMissingIsNotFound(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: 0, Stdout: "Did not find a source named: nope\n"})
	_, err := w.RemoveSource(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, types.ErrKindNotFound, err.(*types.MCPError).Kind)
}

func TestInstallSelf(t *testing.T) {
	t.Parallel()

	w, _ := newTestWinget(&executor.CommandResult{ExitCode: 0})
	result, err := w.InstallSelf(context.Background())
	require.NoError(t, err)
	assert.True(t, result.NoOp)

	missing := New(&executortest.Fake{}, "", time.Second)
	_, err = missing.InstallSelf(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrKindBackendNotInstalled, err.(*types.MCPError).Kind)
}
