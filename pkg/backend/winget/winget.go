// Package winget implements the Windows Package Manager (winget) backend.
//
// winget has no machine-readable list format on the supported version range,
// so parsing follows the documented column table layout. Classification
// prefers the APPINSTALLER_CLI exit codes and falls back to the anchored
// English status lines winget emits regardless of installer locale.
package winget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osbridge/pkgmgr-mcp/pkg/backend"
	"github.com/osbridge/pkgmgr-mcp/pkg/executor"
	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

const exeName = "winget"

// APPINSTALLER_CLI error HRESULTs as the signed 32-bit values Go reports for
// the process exit code on Windows.
const (
	exitOK                  = 0
	exitNoApplicationsFound = -1978335212 // 0x8A150014
	exitUpdateNotApplicable = -1978335189 // 0x8A15002B
	exitAlreadyInstalled    = -1978335135 // 0x8A150061
	exitSourceNameExists    = -1978335085 // 0x8A1500B3
)

// consentArgs suppress the interactive prompts winget otherwise blocks on.
var consentArgs = []string{"--disable-interactivity", "--accept-source-agreements"}

type Winget struct {
	backend.Base
}

// New builds a winget backend. path overrides PATH resolution of the winget
// executable when non-empty.
func New(runner executor.Runner, path string, timeout time.Duration) *Winget {
	return &Winget{Base: backend.NewBase(exeName, path, runner, timeout)}
}

func (w *Winget) Name() string { return "winget" }

// winget rejects `source add` for an existing name instead of replacing it.
func (w *Winget) SupportsSourceReplace() bool { return false }

func (w *Winget) ListInstalled(ctx context.Context) ([]types.PackageInfo, error) {
	args := append([]string{"list"}, consentArgs...)
	res, mcpErr := w.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	if isEmptySet(res) {
		return []types.PackageInfo{}, nil
	}
	if err := w.classifyQuery(res, "list"); err != nil {
		return nil, err
	}
	return parsePackages(res.Stdout)
}

func (w *Winget) Search(ctx context.Context, term string) ([]types.PackageInfo, error) {
	args := append([]string{"search", term}, consentArgs...)
	res, mcpErr := w.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	if isEmptySet(res) {
		return []types.PackageInfo{}, nil
	}
	if err := w.classifyQuery(res, "search"); err != nil {
		return nil, err
	}
	return parsePackages(res.Stdout)
}

func (w *Winget) Install(ctx context.Context, spec types.PackageSpec) (*types.OpResult, error) {
	args := []string{"install", "--id", spec.ID, "--exact", "--silent", "--accept-package-agreements"}
	args = append(args, consentArgs...)
	if spec.Version != "" {
		args = append(args, "--version", spec.Version)
	}
	if spec.Source != "" {
		args = append(args, "--source", spec.Source)
	}
	res, mcpErr := w.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return w.classifyMutation(res, args, spec.ID, spec.Version)
}

func (w *Winget) Uninstall(ctx context.Context, id string) (*types.OpResult, error) {
	args := []string{"uninstall", "--id", id, "--exact", "--silent"}
	args = append(args, consentArgs...)
	res, mcpErr := w.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return w.classifyMutation(res, args, id, "")
}

func (w *Winget) Upgrade(ctx context.Context, spec types.PackageSpec) (*types.OpResult, error) {
	args := []string{"upgrade", "--id", spec.ID, "--exact", "--silent", "--accept-package-agreements"}
	args = append(args, consentArgs...)
	if spec.Version != "" {
		args = append(args, "--version", spec.Version)
	}
	if spec.Source != "" {
		args = append(args, "--source", spec.Source)
	}
	res, mcpErr := w.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return w.classifyMutation(res, args, spec.ID, spec.Version)
}

func (w *Winget) ListSources(ctx context.Context) ([]types.SourceSpec, error) {
	res, mcpErr := w.Run(ctx, []string{"source", "list"})
	if mcpErr != nil {
		return nil, mcpErr
	}
	if err := w.classifyQuery(res, "source list"); err != nil {
		return nil, err
	}
	return parseSources(res.Stdout)
}

func (w *Winget) AddSource(ctx context.Context, src types.SourceSpec) (*types.OpResult, error) {
	// winget sources have no credential or priority channel on the
	// supported CLI surface; rejecting beats silently dropping a secret.
	if src.Username != "" || src.Password != "" {
		return nil, types.InvalidRequest("winget sources do not support credentials")
	}
	srcType := src.Type
	if srcType == "" {
		srcType = "Microsoft.Rest"
	}
	args := []string{"source", "add", "--name", src.Name, "--arg", src.URL, "--type", srcType}
	args = append(args, "--disable-interactivity")
	res, mcpErr := w.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	if res.ExitCode == exitSourceNameExists || strings.Contains(res.Stdout, "source with the given name already exists") {
		return nil, types.InvalidRequest("a source named %q already exists; winget does not replace sources in place", src.Name)
	}
	if res.ExitCode != exitOK {
		return nil, w.executionFailed(res, args)
	}
	return types.OKResult(nil), nil
}

func (w *Winget) RemoveSource(ctx context.Context, name string) (*types.OpResult, error) {
	args := []string{"source", "remove", "--name", name, "--disable-interactivity"}
	res, mcpErr := w.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	if strings.Contains(res.Stdout, "Did not find a source") {
		return nil, &types.MCPError{
			Kind:    types.ErrKindNotFound,
			Message: fmt.Sprintf("source %q does not exist", name),
			Command: backend.RedactCommand(exeName, args, nil),
		}
	}
	if res.ExitCode != exitOK {
		return nil, w.executionFailed(res, args)
	}
	return types.OKResult(nil), nil
}

// InstallSelf cannot bootstrap winget from a shell one-liner; it ships with
// the App Installer system package. Present is a no-op, absent is reported
// with remediation guidance.
func (w *Winget) InstallSelf(ctx context.Context) (*types.OpResult, error) {
	if w.Available() {
		return types.NoOpResult("winget is already installed", nil), nil
	}
	if _, err := w.Runner.LookPath(exeName); err == nil {
		return types.NoOpResult("winget is already installed", nil), nil
	}
	return nil, &types.MCPError{
		Kind:    types.ErrKindBackendNotInstalled,
		Message: "winget is not installed; install the App Installer package from the Microsoft Store to provision it",
	}
}

func (w *Winget) classifyQuery(res *executor.CommandResult, op string) error {
	if res.ExitCode == exitOK {
		return nil
	}
	return &types.MCPError{
		Kind:    types.ErrKindBackendExecutionFailed,
		Message: fmt.Sprintf("winget %s exited with code %d", op, res.ExitCode),
		Detail:  backend.ExcerptStderr(res),
	}
}

// classifyMutation maps install/uninstall/upgrade outcomes onto the shared
// taxonomy. Exit codes first, anchored text as fallback.
func (w *Winget) classifyMutation(res *executor.CommandResult, args []string, id, requestedVersion string) (*types.OpResult, error) {
	stdout := res.Stdout

	switch res.ExitCode {
	case exitOK:
		if strings.Contains(stdout, "No applicable upgrade found") ||
			strings.Contains(stdout, "already the latest version") {
			return types.NoOpResult(fmt.Sprintf("package %q is already at the requested state", id), &types.PackageInfo{ID: id, InstalledVersion: requestedVersion}), nil
		}
		return types.OKResult(&types.PackageInfo{ID: id, InstalledVersion: requestedVersion}), nil
	case exitAlreadyInstalled, exitUpdateNotApplicable:
		return types.NoOpResult(fmt.Sprintf("package %q is already installed at the requested version", id), &types.PackageInfo{ID: id, InstalledVersion: requestedVersion}), nil
	case exitNoApplicationsFound:
		return nil, &types.MCPError{
			Kind:    types.ErrKindNotFound,
			Message: fmt.Sprintf("package %q was not found", id),
			Command: backend.RedactCommand(exeName, args, nil),
		}
	default:
		if strings.Contains(stdout, "No package found matching input criteria") ||
			strings.Contains(stdout, "No installed package found matching input criteria") {
			return nil, &types.MCPError{
				Kind:    types.ErrKindNotFound,
				Message: fmt.Sprintf("package %q was not found", id),
				Command: backend.RedactCommand(exeName, args, nil),
			}
		}
		return nil, w.executionFailed(res, args)
	}
}

func (w *Winget) executionFailed(res *executor.CommandResult, args []string) *types.MCPError {
	return &types.MCPError{
		Kind:    types.ErrKindBackendExecutionFailed,
		Message: fmt.Sprintf("winget exited with code %d", res.ExitCode),
		Detail:  backend.ExcerptStderr(res),
		Command: backend.RedactCommand(exeName, args, nil),
	}
}

// isEmptySet reports whether a list/search outcome is winget's documented
// "nothing matched" answer, which must parse as an empty set.
func isEmptySet(res *executor.CommandResult) bool {
	return strings.Contains(res.Stdout, "No package found matching input criteria") ||
		strings.Contains(res.Stdout, "No installed package found matching input criteria") ||
		res.ExitCode == exitNoApplicationsFound
}
