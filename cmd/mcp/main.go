package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/avelinsk/finpaper/internal/adapters/mcp"
	"github.com/avelinsk/finpaper/internal/bootstrap"
	"github.com/avelinsk/finpaper/internal/config"
	"github.com/avelinsk/finpaper/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	if cfg.MCPOrganizationID == "" {
		log.Fatal("MCP_ORGANIZATION_ID is required")
	}

	// MCP speaks JSON-RPC over stdout; logs must stay on stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := mcpadapter.New(app.SearchUC, cfg.MCPOrganizationID, logger)
	if err := srv.ServeStdio(); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
