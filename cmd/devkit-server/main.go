package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/osbridge/pkgmgr-mcp/pkg/config"
	"github.com/osbridge/pkgmgr-mcp/pkg/mcp"
	"github.com/osbridge/pkgmgr-mcp/pkg/tools"
)

var (
	flagPort      int
	flagLogLevel  string
	flagTransport string
)

var rootCmd = &cobra.Command{
	Use:          "devkit-server",
	Short:        "MCP server exposing developer utility tools",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("mcp-devkit")
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		config.SetupLogging(cfg)

		slog.Info("starting mcp-devkit server", "port", cfg.Port, "transport", cfg.Transport)

		registry := tools.NewRegistry()
		tools.RegisterDevkitTools(registry, tools.BaseTool{Cfg: cfg})

		return mcp.Serve(cfg, registry, "devkit", nil)
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
}

func init() {
	rootCmd.Flags().IntVar(&flagPort, "port", 8080, "HTTP listen port (health checks on port+1)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flagTransport, "transport", config.TransportHTTP, "MCP transport (http or stdio)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
