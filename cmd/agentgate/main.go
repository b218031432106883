// Command agentgate runs the payment gate as a standalone reverse proxy.
// It classifies incoming traffic, challenges browsers, charges agents,
// and forwards allowed requests to the configured upstream untouched.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mattnewell-cam/AgentPayments/internal/config"
	"github.com/mattnewell-cam/AgentPayments/internal/httpserver"
	"github.com/mattnewell-cam/AgentPayments/internal/logger"
	"github.com/mattnewell-cam/AgentPayments/internal/versioning"
	"github.com/mattnewell-cam/AgentPayments/pkg/agentpayments"
)

func main() {
	// A missing .env is fine; containers set real environment variables.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	path := *configPath
	if path == "" {
		path = os.Getenv("AGENTGATE_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentgate: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "agentgate",
		Version:     versioning.Version,
		Environment: cfg.Logging.Environment,
	})

	if cfg.Server.Upstream == "" {
		appLogger.Fatal().Msg("server.upstream is required: the gate has nothing to protect")
	}
	upstream, err := httpserver.NewUpstreamProxy(cfg.Server.Upstream)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("server.upstream_invalid")
	}

	app, err := agentpayments.NewApp(cfg, agentpayments.WithLogger(appLogger))
	if err != nil {
		appLogger.Fatal().Err(err).Msg("server.gate_init_failed")
	}

	srv := app.Server(upstream)

	appLogger.Info().
		Str("version", versioning.Version).
		Str("mode", string(cfg.Mode())).
		Str("upstream", cfg.Server.Upstream).
		Str("address", cfg.Server.Address).
		Msg("server.starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("server.listen_failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("server.shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server.shutdown_error")
	}
	if err := app.Close(); err != nil {
		appLogger.Error().Err(err).Msg("server.close_error")
	}

	appLogger.Info().Msg("server.stopped")
}
