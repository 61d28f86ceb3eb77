// cmd/server/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/SinaHo/fyra-signin-backend/internal/config"
	"github.com/SinaHo/fyra-signin-backend/internal/logger"
	"github.com/SinaHo/fyra-signin-backend/internal/server"
)

func main() {
	configDir := flag.String("config", "internal/config", "directory holding config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize zap logger
	log, err := logger.FromConfig(cfg.Logging)
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer log.Sync()
	sugar := log.Sugar()

	// Create AppServer with zap logger
	app, err := server.NewAppServer(cfg, log)
	if err != nil {
		sugar.Fatalf("failed to initialize server: %v", err)
	}

	// Start server in a goroutine
	go func() {
		if err := app.Run(); err != nil {
			sugar.Fatalf("server run error: %v", err)
		}
	}()
	if cfg.Server.DebugPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.DebugPort)
			sugar.Infow("debug server listening", "addr", addr)
			if err := http.ListenAndServe(addr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sugar.Warnw("debug server stopped", "error", err)
			}
		}()
	}

	// Wait for interrupt (SIGINT/SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit

	sugar.Infow("Received shutdown signal", "signal", sig.String())
	app.GracefulStop()
	sugar.Info("Server stopped")
}
