// Command noteserver runs the schema-validated notes HTTP service.
//
// Startup sequencing matters: the notes table is created before the router
// accepts traffic, so no request can reach an operation ahead of the schema.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/notelab/noteservice/api"
	"github.com/notelab/noteservice/config"
	"github.com/notelab/noteservice/notes"
	"github.com/notelab/noteservice/notestore"
	"github.com/notelab/noteservice/oteladapters"
)

const (
	serviceName    = "noteservice"
	serviceVersion = "0.1.0"

	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("noteserver failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := oteladapters.NewSlogLogger(slogger)

	providers, providersErr := config.NewObservabilityProviders(ctx, serviceName, serviceVersion)
	if providersErr != nil {
		return providersErr
	}
	defer func() {
		if shutdownErr := providers.Shutdown(); shutdownErr != nil {
			slogger.Warn("observability shutdown failed", "error", shutdownErr.Error())
		}
	}()

	// The bridge resolves the global logger provider, so it must come after
	// the providers are registered.
	contextualLogger := oteladapters.NewSlogBridgeLogger(serviceName)
	tracing := oteladapters.NewTracingCollector(otel.Tracer(serviceName))

	poolConfig, poolConfigErr := config.PostgresPGXPoolConfig()
	if poolConfigErr != nil {
		return poolConfigErr
	}

	pool, poolErr := pgxpool.NewWithConfig(ctx, poolConfig)
	if poolErr != nil {
		return poolErr
	}
	defer pool.Close()

	store, storeErr := notestore.NewFromPGXPool(
		pool,
		notestore.WithLogger(logger),
		notestore.WithTracing(tracing),
	)
	if storeErr != nil {
		return storeErr
	}

	// Table creation must complete before the dispatcher serves traffic.
	if schemaErr := store.CreateSchema(ctx); schemaErr != nil {
		return schemaErr
	}

	table, tableErr := notes.ContractTable()
	if tableErr != nil {
		return tableErr
	}

	dispatcher, dispatcherErr := api.NewDispatcher(
		table,
		api.WithTracing(tracing),
		api.WithLogger(logger),
		api.WithContextualLogger(contextualLogger),
	)
	if dispatcherErr != nil {
		return dispatcherErr
	}

	if registerErr := notes.NewHandlers(store).Register(dispatcher); registerErr != nil {
		return registerErr
	}

	router, routerErr := dispatcher.Router()
	if routerErr != nil {
		return routerErr
	}

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:    config.ListenAddr(),
		Handler: router,
	}

	serverErrs := make(chan error, 1)

	go func() {
		slogger.Info("noteserver listening", "addr", server.Addr)

		if serveErr := server.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			serverErrs <- serveErr
		}
	}()

	select {
	case serveErr := <-serverErrs:
		return serveErr
	case <-ctx.Done():
	}

	slogger.Info("noteserver shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
