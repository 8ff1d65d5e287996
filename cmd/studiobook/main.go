package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/studiobook/internal/adapter/fsm"
	handler "github.com/neomorfeo/studiobook/internal/adapter/http"
	oteladapter "github.com/neomorfeo/studiobook/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/studiobook/internal/adapter/river"
	"github.com/neomorfeo/studiobook/internal/adapter/sqlite"
	"github.com/neomorfeo/studiobook/internal/app"
	"github.com/neomorfeo/studiobook/internal/config"
	"github.com/neomorfeo/studiobook/internal/domain"
)

const serviceName = "studiobook"

func main() {
	if err := run(); err != nil {
		slog.Error("studiobook exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// --- Observability ---
	otelCfg, err := oteladapter.ConfigFromEnv()
	if err != nil {
		return err
	}
	providers, err := oteladapter.Setup(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := oteladapter.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	queue, err := riveradapter.Setup(ctx, db, riveradapter.LogSender{Logger: logger})
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			logger.Error("river shutdown", "error", err)
		}
	}()

	catalogStore := oteladapter.NewTracingCatalog(repo.Catalog())
	dispatcher := oteladapter.NewTracingDispatcher(riveradapter.NewDispatcher(queue))

	// --- Application ---
	svc := app.NewBookingService(
		oteladapter.NewTracingRepository(repo),
		catalogStore,
		fsm.New(),
		dispatcher,
		domain.StaticPolicy(cfg.Policy.Domain()),
		app.WithLogger(logger),
		app.WithMaxAttempts(cfg.MaxAttempts),
		app.WithDispatchTimeout(cfg.DispatchTimeout),
	)
	catalog := app.NewCatalogService(catalogStore)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	api := humachi.New(router, huma.DefaultConfig(serviceName, otelCfg.ServiceVersion))
	handler.Register(api, svc, catalog)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("studiobook listening", "port", cfg.Port, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
