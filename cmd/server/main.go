package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ycho/taiga-mcp-server/internal/api"
	"github.com/ycho/taiga-mcp-server/internal/config"
	"github.com/ycho/taiga-mcp-server/internal/mcp"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	taigaURL   string
	port       int
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "taiga-mcp-server",
		Short:   "Taiga MCP Server - AI assistant integration for Taiga",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&taigaURL, "taiga-url", "", "Taiga API URL (overrides TAIGA_API_URL)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Server port for SSE and API modes (overrides PORT)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// MCP command
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the MCP server in stdio or SSE mode",
		RunE:  runMCP,
	}

	var sseMode bool
	mcpCmd.Flags().BoolVar(&sseMode, "sse", false, "Run in SSE mode instead of stdio")

	// API command
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Start REST API server",
		Long:  "Start the REST API server for ChatGPT GPT Actions and other HTTP clients",
		RunE:  runAPI,
	}

	rootCmd.AddCommand(mcpCmd, apiCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// stdout carries the MCP stdio transport, so logs go to stderr
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads the config layers and applies command-line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if taigaURL != "" {
		cfg.APIURL = taigaURL
	}
	if port != 0 {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sseMode, _ := cmd.Flags().GetBool("sse")

	ctx, stop := signalContext(cmd)
	defer stop()

	server := mcp.NewServer(mcp.Config{
		Settings: cfg,
		SSEMode:  sseMode,
	})
	return server.Run(ctx)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	server := api.NewServer(api.Config{Settings: cfg})
	return server.Run(ctx)
}
