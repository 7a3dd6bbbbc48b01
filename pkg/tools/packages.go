package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

// Package lifecycle tools. Each delegates to the server's backend; validation
// of required parameters happens in the dispatcher before Run is called.

// --- list_installed_packages ---

type ListInstalledPackagesTool struct{ BaseTool }

func (t *ListInstalledPackagesTool) Name() string { return "list_installed_packages" }
func (t *ListInstalledPackagesTool) Description() string {
	return fmt.Sprintf("Lists all packages installed through %s", t.Backend.Name())
}
func (t *ListInstalledPackagesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *ListInstalledPackagesTool) Run(ctx context.Context, _ map[string]interface{}) (*StandardResponse, error) {
	packages, err := t.Backend.ListInstalled(ctx)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Debug("tools: listed installed packages", "count", len(packages))
	return t.newResponse(t.Name(), map[string]interface{}{
		"count":    len(packages),
		"packages": packages,
	}), nil
}

// --- install_package ---

type InstallPackageTool struct{ BaseTool }

func (t *InstallPackageTool) Name() string { return "install_package" }
func (t *InstallPackageTool) Description() string {
	return fmt.Sprintf("Installs a package with %s, optionally at a specific version or from a specific source", t.Backend.Name())
}
func (t *InstallPackageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"package": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the package to install",
			},
			"version": map[string]interface{}{
				"type":        "string",
				"description": "Optional version constraint, passed through to the backend unmodified",
			},
			"source": map[string]interface{}{
				"type":        "string",
				"description": "Optional source name to install from",
			},
		},
		"required": []string{"package"},
	}
}

func (t *InstallPackageTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	id, argErr := requireStringArg(args, "package", t.Name())
	if argErr != nil {
		return nil, argErr
	}
	spec := types.PackageSpec{
		ID:      id,
		Version: getStringArg(args, "version", ""),
		Source:  getStringArg(args, "source", ""),
	}
	result, err := t.Backend.Install(ctx, spec)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Info("tools: install finished", "package", id, "no_op", result.NoOp)
	return t.newResponse(t.Name(), result), nil
}

// --- uninstall_package ---

type UninstallPackageTool struct{ BaseTool }

func (t *UninstallPackageTool) Name() string { return "uninstall_package" }
func (t *UninstallPackageTool) Description() string {
	return fmt.Sprintf("Uninstalls a package with %s", t.Backend.Name())
}
func (t *UninstallPackageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"package": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the package to uninstall",
			},
		},
		"required": []string{"package"},
	}
}

func (t *UninstallPackageTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	id, argErr := requireStringArg(args, "package", t.Name())
	if argErr != nil {
		return nil, argErr
	}
	result, err := t.Backend.Uninstall(ctx, id)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Info("tools: uninstall finished", "package", id)
	return t.newResponse(t.Name(), result), nil
}

// --- upgrade_package ---

type UpgradePackageTool struct{ BaseTool }

func (t *UpgradePackageTool) Name() string { return "upgrade_package" }
func (t *UpgradePackageTool) Description() string {
	return fmt.Sprintf("Upgrades a package with %s to the latest or a specific version", t.Backend.Name())
}
func (t *UpgradePackageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"package": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the package to upgrade",
			},
			"version": map[string]interface{}{
				"type":        "string",
				"description": "Optional target version, passed through to the backend unmodified",
			},
			"source": map[string]interface{}{
				"type":        "string",
				"description": "Optional source name to upgrade from",
			},
		},
		"required": []string{"package"},
	}
}

func (t *UpgradePackageTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	id, argErr := requireStringArg(args, "package", t.Name())
	if argErr != nil {
		return nil, argErr
	}
	spec := types.PackageSpec{
		ID:      id,
		Version: getStringArg(args, "version", ""),
		Source:  getStringArg(args, "source", ""),
	}
	result, err := t.Backend.Upgrade(ctx, spec)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Info("tools: upgrade finished", "package", id, "no_op", result.NoOp)
	return t.newResponse(t.Name(), result), nil
}

// --- list_available_packages ---

type ListAvailablePackagesTool struct{ BaseTool }

func (t *ListAvailablePackagesTool) Name() string { return "list_available_packages" }
func (t *ListAvailablePackagesTool) Description() string {
	return fmt.Sprintf("Searches the configured %s sources for available packages", t.Backend.Name())
}
func (t *ListAvailablePackagesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"search_term": map[string]interface{}{
				"type":        "string",
				"description": "Term to search for; matching is done by the backend",
			},
		},
		"required": []string{"search_term"},
	}
}

func (t *ListAvailablePackagesTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	term, argErr := requireStringArg(args, "search_term", t.Name())
	if argErr != nil {
		return nil, argErr
	}
	packages, err := t.Backend.Search(ctx, term)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Debug("tools: search finished", "term", term, "count", len(packages))
	return t.newResponse(t.Name(), map[string]interface{}{
		"count":    len(packages),
		"packages": packages,
	}), nil
}

// --- install_backend ---

type InstallBackendTool struct{ BaseTool }

func (t *InstallBackendTool) Name() string { return "install_backend" }
func (t *InstallBackendTool) Description() string {
	return fmt.Sprintf("Installs the %s package manager itself; a no-op when already present", t.Backend.Name())
}
func (t *InstallBackendTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *InstallBackendTool) Run(ctx context.Context, _ map[string]interface{}) (*StandardResponse, error) {
	result, err := t.Backend.InstallSelf(ctx)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Info("tools: backend install finished", "backend", t.Backend.Name(), "no_op", result.NoOp)
	return t.newResponse(t.Name(), result), nil
}
