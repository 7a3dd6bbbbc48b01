package tools

import (
	"context"
	"time"

	"github.com/osbridge/pkgmgr-mcp/pkg/backend"
	"github.com/osbridge/pkgmgr-mcp/pkg/config"
	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error)
}

type StandardResponse struct {
	Server    string      `json:"server"`
	Backend   string      `json:"backend,omitempty"`
	Timestamp string      `json:"timestamp"`
	Tool      string      `json:"tool"`
	Data      interface{} `json:"data"`
}

// BaseTool carries the construction-time context every tool needs. Backend is
// nil for the devkit tools, which are pure in-process transforms.
type BaseTool struct {
	Cfg     *config.Config
	Backend backend.Backend
}

func (b *BaseTool) newResponse(toolName string, data interface{}) *StandardResponse {
	resp := &StandardResponse{
		Server:    b.Cfg.ServerName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Tool:      toolName,
		Data:      data,
	}
	if b.Backend != nil {
		resp.Backend = b.Backend.Name()
	}
	return resp
}

// toolError stamps the tool name onto an error from the backend layer.
func toolError(toolName string, err error) *types.MCPError {
	mcpErr := types.AsMCPError(err)
	if mcpErr.Tool == "" {
		mcpErr.Tool = toolName
	}
	return mcpErr
}

func getStringArg(args map[string]interface{}, key string, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultVal
}

func getIntArg(args map[string]interface{}, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return defaultVal
}

// requireStringArg returns an INVALID_REQUEST error when key is absent or
// blank. The dispatcher's schema check catches missing required fields
// already; this guards tools called outside the dispatcher.
func requireStringArg(args map[string]interface{}, key, toolName string) (string, *types.MCPError) {
	v := getStringArg(args, key, "")
	if v == "" {
		err := types.InvalidRequest("parameter %q is required", key)
		err.Tool = toolName
		return "", err
	}
	return v, nil
}
