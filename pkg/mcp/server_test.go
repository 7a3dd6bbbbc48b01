package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbridge/pkgmgr-mcp/pkg/tools"
	"github.com/osbridge/pkgmgr-mcp/pkg/types"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type echoTool struct {
	ran bool
}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "echoes its input back" }

func (t *echoTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text to echo",
			},
		},
		"required": []string{"text"},
	}
}

func (t *echoTool) Run(_ context.Context, args map[string]interface{}) (*tools.StandardResponse, error) {
	t.ran = true
	return &tools.StandardResponse{
		Server: "test",
		Tool:   t.Name(),
		Data:   map[string]interface{}{"text": args["text"]},
	}, nil
}

func newTestServer(t *testing.T, tl tools.Tool) *Server {
	t.Helper()
	registry := tools.NewRegistry()
	registry.Register(tl)
	return NewServer("mcp-test", registry)
}

func TestValidateArgsRejectsMissingRequired(t *testing.T) {
	s := newTestServer(t, &echoTool{})

	mcpErr := s.validateArgs("echo", map[string]interface{}{})
	require.NotNil(t, mcpErr)
	assert.Equal(t, types.ErrKindInvalidRequest, mcpErr.Kind)
	assert.Equal(t, "echo", mcpErr.Tool)
}

func TestValidateArgsRejectsWrongType(t *testing.T) {
	s := newTestServer(t, &echoTool{})

	mcpErr := s.validateArgs("echo", map[string]interface{}{"text": 42.0})
	require.NotNil(t, mcpErr)
	assert.Equal(t, types.ErrKindInvalidRequest, mcpErr.Kind)
}

func TestValidateArgsAcceptsWellFormed(t *testing.T) {
	s := newTestServer(t, &echoTool{})

	assert.Nil(t, s.validateArgs("echo", map[string]interface{}{"text": "hello"}))
}

func TestValidateArgsUnknownToolIsPermissive(t *testing.T) {
	s := newTestServer(t, &echoTool{})

	assert.Nil(t, s.validateArgs("no-such-tool", map[string]interface{}{}))
}

func TestBuildMCPToolResolvesSchema(t *testing.T) {
	tool, resolved := buildMCPTool(&echoTool{})
	require.NotNil(t, tool)
	assert.Equal(t, "echo", tool.Name)
	assert.NotNil(t, resolved)
}

func TestHandlerRejectsInvalidArgsBeforeToolRuns(t *testing.T) {
	echo := &echoTool{}
	s := newTestServer(t, echo)

	handler := s.buildInstrumentedHandler(echo)
	result, err := handler(context.Background(), &mcpsdk.CallToolRequest{
		Params: &mcpsdk.CallToolParamsRaw{
			Name:      "echo",
			Arguments: json.RawMessage(`{}`),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.False(t, echo.ran, "tool must not run when validation fails")

	text := result.Content[0].(*mcpsdk.TextContent).Text
	var mcpErr types.MCPError
	require.NoError(t, json.Unmarshal([]byte(text), &mcpErr))
	assert.Equal(t, types.ErrKindInvalidRequest, mcpErr.Kind)
}

func TestHandlerReturnsToolResponse(t *testing.T) {
	echo := &echoTool{}
	s := newTestServer(t, echo)

	handler := s.buildInstrumentedHandler(echo)
	result, err := handler(context.Background(), &mcpsdk.CallToolRequest{
		Params: &mcpsdk.CallToolParamsRaw{
			Name:      "echo",
			Arguments: json.RawMessage(`{"text":"hello"}`),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.True(t, echo.ran)

	text := result.Content[0].(*mcpsdk.TextContent).Text
	var response tools.StandardResponse
	require.NoError(t, json.Unmarshal([]byte(text), &response))
	assert.Equal(t, "echo", response.Tool)
}

type panicTool struct{ echoTool }

func (t *panicTool) Name() string { return "panic" }

func (t *panicTool) Run(context.Context, map[string]interface{}) (*tools.StandardResponse, error) {
	panic("controller bug")
}

func TestHandlerRecoversPanicAsExecutionFailure(t *testing.T) {
	pt := &panicTool{}
	s := newTestServer(t, pt)

	handler := s.buildInstrumentedHandler(pt)
	result, err := handler(context.Background(), &mcpsdk.CallToolRequest{
		Params: &mcpsdk.CallToolParamsRaw{
			Name:      "panic",
			Arguments: json.RawMessage(`{"text":"x"}`),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)

	text := result.Content[0].(*mcpsdk.TextContent).Text
	var mcpErr types.MCPError
	require.NoError(t, json.Unmarshal([]byte(text), &mcpErr))
	assert.Equal(t, types.ErrKindBackendExecutionFailed, mcpErr.Kind)
}

func TestSanitizeArgsRedactsCredentials(t *testing.T) {
	out := sanitizeArgs(map[string]interface{}{
		"name":   "corp-feed",
		"secret": "hunter2",
		"token":  "eyJ...",
	})
	assert.Contains(t, out, "corp-feed")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "eyJ")
	assert.Contains(t, out, "[REDACTED]")
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, isSensitiveKey("secret"))
	assert.True(t, isSensitiveKey("API_TOKEN"))
	assert.True(t, isSensitiveKey("password"))
	assert.False(t, isSensitiveKey("package"))
	assert.False(t, isSensitiveKey("search_term"))
}
