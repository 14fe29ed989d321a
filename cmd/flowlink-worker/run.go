package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/flowlink/pkg/cmd"
	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/otelhelper"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	workerID        string
	databaseURL     string
	eventBus        string
	kafkaBrokers    string
	configFile      string
	pluginsPath     string
	maxRetries      int
	poolSize        int64
	recover         bool
	tracing         bool
	shutdownTimeout time.Duration
}

func run(ctx context.Context, opts options) error {
	logger := log.WithModule("flowlink-worker").With("worker_id", opts.workerID)

	logger.InfoContext(ctx, "Initializing flowlink worker")

	var tracer trace.Tracer

	if opts.tracing {
		t, shutdown, err := otelhelper.NewTracer(ctx, "flowlink-worker")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			err := shutdown(context.WithoutCancel(ctx))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()

		tracer = t
	}

	engine, err := cmd.NewEngine(ctx, logger, cmd.EngineOptions{
		ServiceName:  "flowlink-worker",
		DatabaseURL:  opts.databaseURL,
		EventBus:     opts.eventBus,
		KafkaBrokers: opts.kafkaBrokers,
		ConfigFile:   opts.configFile,
		PluginsPath:  opts.pluginsPath,
		MaxRetries:   opts.maxRetries,
		PoolSize:     opts.poolSize,
		Tracer:       tracer,
	})
	if err != nil {
		return err
	}

	worker := NewWorker(
		opts.workerID,
		engine.Flows,
		engine.Orchestrator,
		engine.Persistence.WorkflowRepository(),
		engine.EventBus,
		logger,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = worker.Start(ctx, opts.recover)
	if err != nil {
		_ = engine.Close(context.WithoutCancel(ctx))

		return err
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.shutdownTimeout)
	defer cancel()

	err = worker.Stop(shutdownCtx)

	closeErr := engine.Close(shutdownCtx)
	if err == nil {
		err = closeErr
	}

	return err
}
