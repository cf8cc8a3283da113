package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/amishk599/hireflow/internal/server"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	Long:  "Serve the careers page form, the JSON API and /metrics; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger.Info("config loaded",
		"model", cfg.LLM.Model,
		"portfolio", cfg.Portfolio.CSVPath,
		"embedder", cfg.Portfolio.Embedder,
		"notification", cfg.Notification.Type,
	)

	reg, rec := newRegistry()
	a, err := buildApp(cfg, rec, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := server.New(server.NewHandler(a.pipeline, logger), reg, reg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, cfg.Server.Addr, engine, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
