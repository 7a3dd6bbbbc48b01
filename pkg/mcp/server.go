package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/osbridge/pkgmgr-mcp/pkg/telemetry"
	"github.com/osbridge/pkgmgr-mcp/pkg/tools"
	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

const (
	mcpProtocolVersion = "2025-03-26"
	maxResultAttrLen   = 1024
	serverVersion      = "1.0.0"
)

// sensitiveKeys are argument key substrings that are redacted from span
// attributes and log lines. "secret" covers the add_source credential,
// "token" the JWT decoder input.
var sensitiveKeys = []string{"secret", "token", "key", "password", "credential", "certificate"}

// Server is the dispatch layer: it validates incoming tool arguments against
// each tool's declared schema, routes to the registered tool, and converts
// every outcome into exactly one protocol response. It owns no
// backend-specific knowledge.
type Server struct {
	name       string
	mcpServer  *mcp.Server
	httpServer *http.Server
	registry   *tools.Registry
	meters     *telemetry.Meters

	// validators holds the resolved input schema per tool name, built once
	// at registration so a malformed request never reaches a controller.
	validators map[string]*jsonschema.Resolved
}

func NewServer(name string, registry *tools.Registry) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: serverVersion,
	}, nil)

	meters, err := telemetry.NewMeters(name)
	if err != nil {
		slog.Warn("mcp: failed to create OTel meters, metrics will be unavailable", "error", err)
	}

	s := &Server{
		name:       name,
		mcpServer:  mcpServer,
		registry:   registry,
		meters:     meters,
		validators: make(map[string]*jsonschema.Resolved),
	}
	s.registerTools()
	return s
}

// registerTools publishes every registry tool to the MCP server and compiles
// its input schema for dispatch-time validation.
func (s *Server) registerTools() {
	for _, t := range s.registry.List() {
		mcpTool, resolved := buildMCPTool(t)
		if resolved != nil {
			s.validators[t.Name()] = resolved
		}
		s.mcpServer.AddTool(mcpTool, s.buildInstrumentedHandler(t))
	}
	slog.Info("mcp: registered tools", "count", len(s.registry.List()))
}

func (s *Server) Start(addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("mcp: starting Streamable HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// RunStdio serves the MCP protocol over stdin/stdout until ctx is done.
func (s *Server) RunStdio(ctx context.Context) error {
	slog.Info("mcp: serving over stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func buildMCPTool(t tools.Tool) (*mcp.Tool, *jsonschema.Resolved) {
	schema := t.InputSchema()
	schemaJSON, _ := json.Marshal(schema)

	tool := &mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
	}

	// Parse the JSON schema into the go-sdk's jsonschema.Schema type
	parsed := &jsonschema.Schema{}
	if err := json.Unmarshal(schemaJSON, parsed); err != nil {
		slog.Warn("mcp: failed to parse input schema", "tool", t.Name(), "error", err)
		return tool, nil
	}
	tool.InputSchema = parsed

	resolved, err := parsed.Resolve(nil)
	if err != nil {
		slog.Warn("mcp: failed to resolve input schema, dispatch validation disabled", "tool", t.Name(), "error", err)
		return tool, nil
	}
	return tool, resolved
}

// validateArgs checks args against the tool's resolved schema. A failure is
// an INVALID_REQUEST that never reaches the controller or the executor.
func (s *Server) validateArgs(toolName string, args map[string]interface{}) *types.MCPError {
	resolved, ok := s.validators[toolName]
	if !ok {
		return nil
	}
	if err := resolved.Validate(args); err != nil {
		return &types.MCPError{
			Kind:    types.ErrKindInvalidRequest,
			Message: "arguments do not match the tool's input schema",
			Tool:    toolName,
			Detail:  err.Error(),
		}
	}
	return nil
}

// buildInstrumentedHandler creates a ToolHandler that wraps tool execution
// with schema validation, OTel spans, metrics, and context propagation per
// GenAI + MCP semantic conventions. Every exit path produces exactly one
// response; nothing raises across the protocol boundary.
func (s *Server) buildInstrumentedHandler(t tools.Tool) mcp.ToolHandler {
	tracer := otel.Tracer(s.name)

	return func(ctx context.Context, request *mcp.CallToolRequest) (result *mcp.CallToolResult, retErr error) {
		// --- Context Propagation: extract traceparent/tracestate from params._meta ---
		meta := request.Params.GetMeta()
		if meta != nil {
			carrier := propagation.MapCarrier{}
			for k, v := range meta {
				if str, ok := v.(string); ok {
					carrier.Set(k, str)
				}
			}
			ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
		}

		sessionID := ""
		if request.Session != nil {
			sessionID = request.Session.ID()
		}

		spanName := fmt.Sprintf("execute_tool %s", t.Name())
		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		span.SetAttributes(
			attribute.String("gen_ai.operation.name", "execute_tool"),
			attribute.String("gen_ai.tool.name", t.Name()),
			attribute.String("mcp.method.name", "tools/call"),
			attribute.String("mcp.protocol.version", mcpProtocolVersion),
			attribute.String("mcp.session.id", sessionID),
		)

		// A controller bug must surface as a classified error response,
		// never as a crashed session.
		defer func() {
			if r := recover(); r != nil {
				mcpErr := types.NewError(types.ErrKindBackendExecutionFailed, "internal error: %v", r)
				mcpErr.Tool = t.Name()
				s.recordError(ctx, span, t.Name(), mcpErr.Kind, mcpErr)
				result = errorResult(mcpErr)
				retErr = nil
			}
		}()

		// --- Unmarshal arguments ---
		var args map[string]interface{}
		if request.Params.Arguments != nil {
			if err := json.Unmarshal(request.Params.Arguments, &args); err != nil {
				mcpErr := types.InvalidRequest("failed to parse arguments: %v", err)
				mcpErr.Tool = t.Name()
				s.recordError(ctx, span, t.Name(), mcpErr.Kind, mcpErr)
				return errorResult(mcpErr), nil
			}
		}
		if args == nil {
			args = make(map[string]interface{})
		}

		span.SetAttributes(attribute.String("gen_ai.tool.call.arguments", sanitizeArgs(args)))

		// --- Schema validation before any controller logic runs ---
		if mcpErr := s.validateArgs(t.Name(), args); mcpErr != nil {
			s.recordMetrics(ctx, t.Name(), mcpErr.Kind, 0)
			s.recordError(ctx, span, t.Name(), mcpErr.Kind, mcpErr)
			return errorResult(mcpErr), nil
		}

		// --- Execute tool with timing ---
		start := time.Now()
		response, err := t.Run(ctx, args)
		duration := time.Since(start).Seconds()

		if err != nil {
			mcpErr := types.AsMCPError(err)
			if mcpErr.Tool == "" {
				mcpErr.Tool = t.Name()
			}
			s.recordMetrics(ctx, t.Name(), mcpErr.Kind, duration)
			s.recordError(ctx, span, t.Name(), mcpErr.Kind, mcpErr)
			return errorResult(mcpErr), nil
		}

		// Success metrics
		s.recordMetrics(ctx, t.Name(), "", duration)
		s.recordDomainMetrics(ctx, t.Name(), response)
		span.SetStatus(codes.Ok, "")

		jsonBytes, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			mcpErr := types.NewError(types.ErrKindBackendExecutionFailed, "failed to marshal result: %v", err)
			mcpErr.Tool = t.Name()
			s.recordError(ctx, span, t.Name(), mcpErr.Kind, mcpErr)
			return errorResult(mcpErr), nil
		}

		resultStr := string(jsonBytes)
		if len(resultStr) > maxResultAttrLen {
			resultStr = resultStr[:maxResultAttrLen]
		}
		span.SetAttributes(attribute.String("gen_ai.tool.call.result", resultStr))

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
		}, nil
	}
}

// errorResult renders an MCPError as a protocol error response.
func errorResult(mcpErr *types.MCPError) *mcp.CallToolResult {
	errJSON, marshalErr := json.MarshalIndent(mcpErr, "", "  ")
	if marshalErr != nil {
		errJSON = []byte(mcpErr.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(errJSON)}},
		IsError: true,
	}
}

// recordMetrics records GenAI request duration and count metrics.
func (s *Server) recordMetrics(ctx context.Context, toolName, errKind string, duration float64) {
	if s.meters == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.tool.name", toolName),
	}
	if errKind != "" {
		attrs = append(attrs, attribute.String("error.type", errKind))
	}
	s.meters.RequestDuration.Record(ctx, duration, telemetry.WithAttrs(attrs...))
	s.meters.RequestCount.Add(ctx, 1, telemetry.WithAttrs(attrs...))
}

// recordError records error metrics and sets span error status.
func (s *Server) recordError(ctx context.Context, span trace.Span, toolName, errKind string, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", errKind))
	span.RecordError(err)

	if s.meters == nil {
		return
	}
	s.meters.ErrorsTotal.Add(ctx, 1, telemetry.WithAttrs(
		attribute.String("error.code", errKind),
		attribute.String("gen_ai.tool.name", toolName),
	))
}

// recordDomainMetrics records package counts and no-op outcomes.
func (s *Server) recordDomainMetrics(ctx context.Context, toolName string, response *tools.StandardResponse) {
	if s.meters == nil || response == nil {
		return
	}
	switch data := response.Data.(type) {
	case *types.OpResult:
		if data.NoOp {
			s.meters.NoOpsTotal.Add(ctx, 1, telemetry.WithAttrs(
				attribute.String("gen_ai.tool.name", toolName),
			))
		}
	case map[string]interface{}:
		if count, ok := data["count"].(int); ok {
			s.meters.PackagesTotal.Add(ctx, int64(count), telemetry.WithAttrs(
				attribute.String("gen_ai.tool.name", toolName),
			))
		}
	}
}

// sanitizeArgs returns a JSON string of the arguments with sensitive values redacted.
func sanitizeArgs(args map[string]interface{}) string {
	sanitized := make(map[string]interface{}, len(args))
	for k, v := range args {
		if isSensitiveKey(k) {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}
	b, err := json.Marshal(sanitized)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// isSensitiveKey checks if a key name suggests it contains sensitive data.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
