package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

// Source lifecycle tools.

// --- list_sources ---

type ListSourcesTool struct{ BaseTool }

func (t *ListSourcesTool) Name() string { return "list_sources" }
func (t *ListSourcesTool) Description() string {
	return fmt.Sprintf("Lists the package sources configured for %s", t.Backend.Name())
}
func (t *ListSourcesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *ListSourcesTool) Run(ctx context.Context, _ map[string]interface{}) (*StandardResponse, error) {
	sources, err := t.Backend.ListSources(ctx)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Debug("tools: listed sources", "count", len(sources))
	return t.newResponse(t.Name(), map[string]interface{}{
		"count":   len(sources),
		"sources": sources,
	}), nil
}

// --- add_source ---

type AddSourceTool struct{ BaseTool }

func (t *AddSourceTool) Name() string { return "add_source" }
func (t *AddSourceTool) Description() string {
	return fmt.Sprintf("Adds a package source to %s; duplicate names are rejected unless the backend replaces sources in place", t.Backend.Name())
}
func (t *AddSourceTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the source to add",
			},
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL or path of the package source",
			},
			"username": map[string]interface{}{
				"type":        "string",
				"description": "Optional username for authenticated sources",
			},
			"secret": map[string]interface{}{
				"type":        "string",
				"description": "Optional password or token for authenticated sources; never echoed back",
			},
			"priority": map[string]interface{}{
				"type":        "integer",
				"minimum":     0,
				"description": "Optional priority, lower values take precedence",
			},
			"type": map[string]interface{}{
				"type":        "string",
				"description": "Optional source type for backends that distinguish them, e.g. winget's Microsoft.Rest or Microsoft.PreIndexed.Package",
			},
		},
		"required": []string{"name", "url"},
	}
}

func (t *AddSourceTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	name, argErr := requireStringArg(args, "name", t.Name())
	if argErr != nil {
		return nil, argErr
	}
	url, argErr := requireStringArg(args, "url", t.Name())
	if argErr != nil {
		return nil, argErr
	}
	priority := getIntArg(args, "priority", 0)
	if priority < 0 {
		return nil, toolError(t.Name(), types.InvalidRequest("priority must be non-negative"))
	}
	src := types.SourceSpec{
		Name:     name,
		URL:      url,
		Type:     getStringArg(args, "type", ""),
		Username: getStringArg(args, "username", ""),
		Password: getStringArg(args, "secret", ""),
		Priority: priority,
	}

	// Duplicate names are a business-rule failure unless this backend
	// documents source add as an idempotent replace.
	if !t.Backend.SupportsSourceReplace() {
		existing, err := t.Backend.ListSources(ctx)
		if err != nil {
			return nil, toolError(t.Name(), err)
		}
		for _, s := range existing {
			if s.Name == name {
				return nil, toolError(t.Name(), types.InvalidRequest("a source named %q already exists", name))
			}
		}
	}

	result, err := t.Backend.AddSource(ctx, src)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Info("tools: source added", "source", name, "no_op", result.NoOp)
	return t.newResponse(t.Name(), result), nil
}

// --- remove_source ---

type RemoveSourceTool struct{ BaseTool }

func (t *RemoveSourceTool) Name() string { return "remove_source" }
func (t *RemoveSourceTool) Description() string {
	return fmt.Sprintf("Removes a package source from %s", t.Backend.Name())
}
func (t *RemoveSourceTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the source to remove",
			},
		},
		"required": []string{"name"},
	}
}

func (t *RemoveSourceTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	name, argErr := requireStringArg(args, "name", t.Name())
	if argErr != nil {
		return nil, argErr
	}
	result, err := t.Backend.RemoveSource(ctx, name)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	slog.Info("tools: source removed", "source", name)
	return t.newResponse(t.Name(), result), nil
}

// RegisterPackageManagerTools registers the full package and source
// lifecycle surface for one backend family.
func RegisterPackageManagerTools(registry *Registry, base BaseTool) {
	registry.Register(&ListInstalledPackagesTool{base})
	registry.Register(&InstallPackageTool{base})
	registry.Register(&UninstallPackageTool{base})
	registry.Register(&UpgradePackageTool{base})
	registry.Register(&ListAvailablePackagesTool{base})
	registry.Register(&InstallBackendTool{base})
	registry.Register(&ListSourcesTool{base})
	registry.Register(&AddSourceTool{base})
	registry.Register(&RemoveSourceTool{base})
}
