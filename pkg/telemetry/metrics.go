package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WithAttrs returns a metric.MeasurementOption from attribute key-value pairs.
func WithAttrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(attrs...)
}

// Meters holds pre-created OTel metric instruments for MCP server instrumentation.
type Meters struct {
	// GenAI semantic convention metrics
	RequestDuration metric.Float64Histogram
	RequestCount    metric.Int64Counter

	// Custom domain metrics
	ErrorsTotal   metric.Int64Counter
	NoOpsTotal    metric.Int64Counter
	PackagesTotal metric.Int64Counter
}

// NewMeters creates all OTel metric instruments for MCP server instrumentation.
func NewMeters(serviceName string) (*Meters, error) {
	meter := otel.Meter(serviceName)

	requestDuration, err := meter.Float64Histogram(
		"gen_ai.server.request.duration",
		metric.WithDescription("Duration of MCP tool call execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"gen_ai.server.request.count",
		metric.WithDescription("Number of MCP tool call requests"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"mcp.errors.total",
		metric.WithDescription("Total tool execution errors by error kind"),
	)
	if err != nil {
		return nil, err
	}

	noOpsTotal, err := meter.Int64Counter(
		"pkgmgr.noops.total",
		metric.WithDescription("Operations that found the requested end-state already in place"),
	)
	if err != nil {
		return nil, err
	}

	packagesTotal, err := meter.Int64Counter(
		"pkgmgr.packages.total",
		metric.WithDescription("Package records returned by list and search tools"),
	)
	if err != nil {
		return nil, err
	}

	return &Meters{
		RequestDuration: requestDuration,
		RequestCount:    requestCount,
		ErrorsTotal:     errorsTotal,
		NoOpsTotal:      noOpsTotal,
		PackagesTotal:   packagesTotal,
	}, nil
}
