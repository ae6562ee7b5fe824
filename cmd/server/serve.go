package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/quotehunter/internal/api"
	"github.com/kiranshivaraju/quotehunter/internal/api/handler"
	mw "github.com/kiranshivaraju/quotehunter/internal/api/middleware"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/internal/trigger"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and pipeline runner",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Store.Driver == "postgres" {
			if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		runner := quote.NewRunner(env.Assembler, quote.OnDone(logOutcome))
		router := api.NewRouter(newDependencies(env, runner))

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		addr := fmt.Sprintf(":%d", port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("server listening", "addr", addr, "env", cfg.Server.Env)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			slog.Info("shutdown signal received, draining connections...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := runner.Shutdown(shutdownCtx); err != nil {
			slog.Warn("pipelines cancelled at shutdown", "error", err)
		}

		slog.Info("server stopped gracefully")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides PORT)")
}

func newDependencies(env *appEnv, runner *quote.Runner) api.Dependencies {
	return api.Dependencies{
		RateLimit:     mw.NewRateLimit(env.Cache, cfg.Server.RequestsPerMinute),
		HealthHandler: handler.NewHealthHandler(env.Gateway, env.Cache),
		TriggerHandler: handler.NewTriggerHandler(handler.TriggerDeps{
			Detector: trigger.NewDetector(cfg.Transport.BotID, cfg.Trigger.ChannelID),
			Runner:   runner,
			Requests: env.Gateway,
			Search:   env.Matcher,
		}),
		PipelineStatusHandler: handler.NewPipelineStatusHandler(env.Recorder, env.Gateway),
		CancelPipelineHandler: handler.NewCancelPipelineHandler(runner),
		ListRequestsHandler:   handler.NewListRequestsHandler(env.Gateway),
		GetRequestHandler:     handler.NewGetRequestHandler(env.Gateway),
		ListSuppliersHandler:  handler.NewListSuppliersHandler(env.Gateway),
		EstimateHandler:       handler.NewEstimateHandler(env.Estimator),
		StatusStream:          env.Hub,
	}
}

func logOutcome(out quote.Outcome) {
	attrs := []any{
		"request_id", out.RequestID,
		"status", out.Status,
		"persisted", out.Persisted,
		"outcome", out.AnalysisOutcome,
		"source", out.MatchSource,
	}
	if out.Err != nil {
		slog.Warn("pipeline finished with error", append(attrs, "error", out.Err)...)
		return
	}
	slog.Info("pipeline finished", attrs...)
}
