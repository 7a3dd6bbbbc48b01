// Package choco implements the Chocolatey package-manager backend.
//
// All commands use --limit-output where Chocolatey supports it, which yields
// the stable pipe-delimited machine format instead of the locale-decorated
// human output.
package choco

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/osbridge/pkgmgr-mcp/pkg/backend"
	"github.com/osbridge/pkgmgr-mcp/pkg/executor"
	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

const exeName = "choco"

// Chocolatey enhanced exit codes relevant to classification. Anything else
// nonzero is a generic execution failure.
const (
	exitOK            = 0
	exitRebootPending = 3010
	exitRebootInit    = 1641
)

// installScript is the vendor bootstrap one-liner, run through PowerShell
// when install_backend is called and choco is absent.
const installScript = `[System.Net.ServicePointManager]::SecurityProtocol = [System.Net.ServicePointManager]::SecurityProtocol -bor 3072; ` +
	`iex ((New-Object System.Net.WebClient).DownloadString('https://community.chocolatey.org/install.ps1'))`

type Choco struct {
	backend.Base
}

// New builds a Chocolatey backend. path overrides PATH resolution of the
// choco executable when non-empty.
func New(runner executor.Runner, path string, timeout time.Duration) *Choco {
	return &Choco{Base: backend.NewBase(exeName, path, runner, timeout)}
}

func (c *Choco) Name() string { return "chocolatey" }

// Chocolatey documents `source add` against an existing name as an update.
func (c *Choco) SupportsSourceReplace() bool { return true }

func (c *Choco) ListInstalled(ctx context.Context) ([]types.PackageInfo, error) {
	res, mcpErr := c.Run(ctx, []string{"list", "--limit-output"})
	if mcpErr != nil {
		return nil, mcpErr
	}
	if err := c.classifyQuery(res, "list"); err != nil {
		return nil, err
	}
	return parsePackages(res.Stdout)
}

func (c *Choco) Search(ctx context.Context, term string) ([]types.PackageInfo, error) {
	res, mcpErr := c.Run(ctx, []string{"search", term, "--limit-output"})
	if mcpErr != nil {
		return nil, mcpErr
	}
	if err := c.classifyQuery(res, "search"); err != nil {
		return nil, err
	}
	return parsePackages(res.Stdout)
}

func (c *Choco) Install(ctx context.Context, spec types.PackageSpec) (*types.OpResult, error) {
	args := []string{"install", spec.ID, "--yes"}
	if spec.Version != "" {
		args = append(args, "--version", spec.Version)
	}
	if spec.Source != "" {
		args = append(args, "--source", spec.Source)
	}
	res, mcpErr := c.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return c.classifyMutation(res, args, spec.ID, spec.Version, "install")
}

func (c *Choco) Uninstall(ctx context.Context, id string) (*types.OpResult, error) {
	args := []string{"uninstall", id, "--yes"}
	res, mcpErr := c.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	// Chocolatey reports uninstalling a non-existent package as a warning
	// with exit 0, so the text check runs before the exit-code check.
	if strings.Contains(res.Stdout, "Cannot uninstall a non-existent package") ||
		strings.Contains(res.Stdout, "is not installed") {
		return nil, &types.MCPError{
			Kind:    types.ErrKindNotFound,
			Message: fmt.Sprintf("package %q is not installed", id),
			Command: backend.RedactCommand(exeName, args, nil),
		}
	}
	return c.classifyMutation(res, args, id, "", "uninstall")
}

func (c *Choco) Upgrade(ctx context.Context, spec types.PackageSpec) (*types.OpResult, error) {
	args := []string{"upgrade", spec.ID, "--yes"}
	if spec.Version != "" {
		args = append(args, "--version", spec.Version)
	}
	if spec.Source != "" {
		args = append(args, "--source", spec.Source)
	}
	res, mcpErr := c.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return c.classifyMutation(res, args, spec.ID, spec.Version, "upgrade")
}

func (c *Choco) ListSources(ctx context.Context) ([]types.SourceSpec, error) {
	res, mcpErr := c.Run(ctx, []string{"source", "list", "--limit-output"})
	if mcpErr != nil {
		return nil, mcpErr
	}
	if err := c.classifyQuery(res, "source list"); err != nil {
		return nil, err
	}
	return parseSources(res.Stdout)
}

func (c *Choco) AddSource(ctx context.Context, src types.SourceSpec) (*types.OpResult, error) {
	if src.Type != "" {
		return nil, types.InvalidRequest("chocolatey sources have no type; omit the type parameter")
	}
	args := []string{"source", "add", "--name", src.Name, "--source", src.URL}
	var secrets []string
	if src.Username != "" {
		args = append(args, "--user", src.Username)
	}
	if src.Password != "" {
		args = append(args, "--password", src.Password)
		secrets = append(secrets, src.Password)
	}
	if src.Priority > 0 {
		args = append(args, "--priority", strconv.Itoa(src.Priority))
	}
	res, mcpErr := c.Run(ctx, args, secrets...)
	if mcpErr != nil {
		return nil, mcpErr
	}
	if res.ExitCode != exitOK {
		return nil, c.executionFailed(res, args, secrets)
	}
	if strings.Contains(res.Stdout, "already exists") || strings.Contains(res.Stdout, "Updated") {
		return types.NoOpResult(fmt.Sprintf("source %q already existed and was updated in place", src.Name), nil), nil
	}
	return types.OKResult(nil), nil
}

func (c *Choco) RemoveSource(ctx context.Context, name string) (*types.OpResult, error) {
	args := []string{"source", "remove", "--name", name}
	res, mcpErr := c.Run(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	if strings.Contains(res.Stdout, "was not found") ||
		strings.Contains(res.Stdout, "Nothing to remove") {
		return nil, &types.MCPError{
			Kind:    types.ErrKindNotFound,
			Message: fmt.Sprintf("source %q does not exist", name),
			Command: backend.RedactCommand(exeName, args, nil),
		}
	}
	if res.ExitCode != exitOK {
		return nil, c.executionFailed(res, args, nil)
	}
	return types.OKResult(nil), nil
}

// InstallSelf bootstraps Chocolatey with the vendor PowerShell script.
func (c *Choco) InstallSelf(ctx context.Context) (*types.OpResult, error) {
	if c.Available() {
		return types.NoOpResult("Chocolatey is already installed", nil), nil
	}
	if _, err := c.Runner.LookPath(exeName); err == nil {
		return types.NoOpResult("Chocolatey is already installed", nil), nil
	}

	slog.Info("choco: installing Chocolatey via vendor script")
	args := []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", installScript}
	// The bootstrap can legitimately take much longer than a normal command.
	res, err := c.Runner.Run(ctx, "powershell.exe", args, 10*time.Minute)
	if err != nil {
		if err == executor.ErrExecutableNotFound {
			return nil, &types.MCPError{
				Kind:    types.ErrKindBackendNotInstalled,
				Message: "powershell.exe is required to bootstrap Chocolatey and was not found",
			}
		}
		return nil, &types.MCPError{
			Kind:    types.ErrKindBackendExecutionFailed,
			Message: "failed to start the Chocolatey bootstrap",
			Detail:  err.Error(),
		}
	}
	if res.TimedOut {
		return nil, &types.MCPError{
			Kind:    types.ErrKindTimedOut,
			Message: "Chocolatey bootstrap did not finish in time",
		}
	}
	if res.ExitCode != exitOK {
		return nil, &types.MCPError{
			Kind:    types.ErrKindBackendExecutionFailed,
			Message: "Chocolatey bootstrap exited nonzero",
			Detail:  backend.ExcerptStderr(res),
		}
	}
	return types.OKResult(nil), nil
}

// classifyQuery validates the outcome of a read-only command.
func (c *Choco) classifyQuery(res *executor.CommandResult, op string) error {
	if res.ExitCode == exitOK {
		return nil
	}
	return &types.MCPError{
		Kind:    types.ErrKindBackendExecutionFailed,
		Message: fmt.Sprintf("choco %s exited with code %d", op, res.ExitCode),
		Detail:  backend.ExcerptStderr(res),
	}
}

// classifyMutation turns the outcome of install/uninstall/upgrade into an
// OpResult or a taxonomy error. Exit codes are authoritative; the anchored
// text fragments are a fallback for outcomes Chocolatey only reports in prose.
func (c *Choco) classifyMutation(res *executor.CommandResult, args []string, id, requestedVersion, op string) (*types.OpResult, error) {
	stdout := res.Stdout

	switch res.ExitCode {
	case exitOK, exitRebootPending, exitRebootInit:
		if strings.Contains(stdout, "already installed") &&
			(strings.Contains(stdout, " 0/1 ") || strings.Contains(stdout, "installed 0/")) {
			pkg := &types.PackageInfo{ID: id, InstalledVersion: requestedVersion}
			if pkg.InstalledVersion == "" {
				pkg.InstalledVersion = extractVersion(stdout, id)
			}
			return types.NoOpResult(fmt.Sprintf("package %q is already installed at the requested version", id), pkg), nil
		}
		if op == "upgrade" && strings.Contains(stdout, "is the latest version available based on your source") {
			pkg := &types.PackageInfo{ID: id, InstalledVersion: extractVersion(stdout, id)}
			return types.NoOpResult(fmt.Sprintf("package %q is already at the latest version", id), pkg), nil
		}
		version := requestedVersion
		if version == "" {
			version = extractVersion(stdout, id)
		}
		return types.OKResult(&types.PackageInfo{ID: id, InstalledVersion: version}), nil
	default:
		if strings.Contains(stdout, "not found with the source") ||
			strings.Contains(stdout, "Unable to find package") {
			return nil, &types.MCPError{
				Kind:    types.ErrKindNotFound,
				Message: fmt.Sprintf("package %q was not found in the configured sources", id),
				Command: backend.RedactCommand(exeName, args, nil),
			}
		}
		return nil, c.executionFailed(res, args, nil)
	}
}

func (c *Choco) executionFailed(res *executor.CommandResult, args, secrets []string) *types.MCPError {
	return &types.MCPError{
		Kind:    types.ErrKindBackendExecutionFailed,
		Message: fmt.Sprintf("choco exited with code %d", res.ExitCode),
		Detail:  backend.ExcerptStderr(res),
		Command: backend.RedactCommand(exeName, args, secrets),
	}
}
