package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/osbridge/pkgmgr-mcp/pkg/backend/choco"
	"github.com/osbridge/pkgmgr-mcp/pkg/config"
	"github.com/osbridge/pkgmgr-mcp/pkg/executor"
	"github.com/osbridge/pkgmgr-mcp/pkg/mcp"
	"github.com/osbridge/pkgmgr-mcp/pkg/tools"
)

var (
	flagPort        int
	flagLogLevel    string
	flagTransport   string
	flagBackendPath string
)

var rootCmd = &cobra.Command{
	Use:          "choco-server",
	Short:        "MCP server exposing Chocolatey package management tools",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("mcp-chocolatey")
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		config.SetupLogging(cfg)

		slog.Info("starting mcp-chocolatey server", "port", cfg.Port, "transport", cfg.Transport)

		backend := choco.New(executor.New(), cfg.BackendPath, cfg.CommandTimeout)
		if !backend.Available() {
			slog.Warn("choco executable not found on PATH, package tools will report BACKEND_NOT_INSTALLED")
		}

		registry := tools.NewRegistry()
		tools.RegisterPackageManagerTools(registry, tools.BaseTool{Cfg: cfg, Backend: backend})

		return mcp.Serve(cfg, registry, backend.Name(), backend.Available)
	},
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = flagTransport
	}
	if cmd.Flags().Changed("backend-path") {
		cfg.BackendPath = flagBackendPath
	}
}

func init() {
	rootCmd.Flags().IntVar(&flagPort, "port", 8080, "HTTP listen port (health checks on port+1)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flagTransport, "transport", config.TransportHTTP, "MCP transport (http or stdio)")
	rootCmd.Flags().StringVar(&flagBackendPath, "backend-path", "", "path to the choco executable (defaults to PATH lookup)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
