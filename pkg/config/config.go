package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

// Transport values accepted by the servers.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

type Config struct {
	ServerName     string
	Port           int
	LogLevel       string
	Transport      string
	CommandTimeout time.Duration

	// BackendPath points at the package-manager executable. Empty means
	// resolve the family's default name on PATH.
	BackendPath string
}

// Load reads configuration from the environment. serverName identifies the
// backend family this process serves and seeds the default server name.
func Load(serverName string) (*Config, error) {
	if v := os.Getenv("SERVER_NAME"); v != "" {
		serverName = v
	}

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	transport := os.Getenv("TRANSPORT")
	if transport == "" {
		transport = TransportHTTP
	}

	commandTimeout := 5 * time.Minute
	if v := os.Getenv("COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			commandTimeout = d
		}
	}

	return &Config{
		ServerName:     serverName,
		Port:           port,
		LogLevel:       logLevel,
		Transport:      transport,
		CommandTimeout: commandTimeout,
		BackendPath:    os.Getenv("BACKEND_PATH"),
	}, nil
}

// SetupLogging initializes the global slog logger. Output is JSON on stderr
// (stdout belongs to the protocol when running over stdio); when an OTLP
// endpoint is configured the otelslog bridge forwards records to the global
// logger provider as well.
func SetupLogging(cfg *Config) {
	var slogLevel slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		bridge := otelslog.NewHandler(cfg.ServerName, otelslog.WithLoggerProvider(global.GetLoggerProvider()))
		slog.SetDefault(slog.New(teeHandler{jsonHandler, bridge}))
		return
	}
	slog.SetDefault(slog.New(jsonHandler))
}

// teeHandler fans records out to stderr and the OTel bridge.
type teeHandler struct {
	local  slog.Handler
	bridge slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.local.Enabled(ctx, level) || t.bridge.Enabled(ctx, level)
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var err error
	if t.local.Enabled(ctx, record.Level) {
		err = t.local.Handle(ctx, record.Clone())
	}
	if bridgeErr := t.bridge.Handle(ctx, record); err == nil {
		err = bridgeErr
	}
	return err
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{t.local.WithAttrs(attrs), t.bridge.WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{t.local.WithGroup(name), t.bridge.WithGroup(name)}
}
