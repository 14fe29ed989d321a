package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/flowlink/pkg/adapters"
	"github.com/dukex/flowlink/pkg/config"
	"github.com/dukex/flowlink/pkg/eventbus"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/dukex/flowlink/pkg/services"
	"github.com/dukex/flowlink/pkg/transform"
	"github.com/dukex/flowlink/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// EngineOptions selects the backends an Engine is built on.
type EngineOptions struct {
	ServiceName  string
	DatabaseURL  string
	EventBus     string
	KafkaBrokers string
	ConfigFile   string
	PluginsPath  string
	MaxRetries   int
	PoolSize     int64
	Tracer       trace.Tracer
}

// Engine is every collaborator of a running flowlink process.
type Engine struct {
	Persistence  persistence.Persistence
	EventBus     eventbus.EventBus
	Adapters     *adapters.Manager
	Orchestrator *workflow.Orchestrator
	Flows        *services.FlowExecution

	logger *slog.Logger
}

// NewEngine opens persistence and the event bus, stores the flows and configures the adapters of
// the config file, and builds the orchestrator over them. Whatever was opened is closed again when
// a later step fails.
func NewEngine(ctx context.Context, logger *slog.Logger, opts EngineOptions) (engine *Engine, err error) {
	engine = &Engine{logger: logger}

	defer func() {
		if err != nil {
			_ = engine.Close(context.WithoutCancel(ctx))
			engine = nil
		}
	}()

	engine.Persistence, err = NewPersistence(ctx, logger, opts.DatabaseURL)
	if err != nil {
		return engine, err
	}

	cfg := &config.File{}

	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
		if err != nil {
			return engine, err
		}

		err = cfg.SaveFlows(ctx, engine.Persistence.FlowDefinitionRepository())
		if err != nil {
			return engine, err
		}
	}

	transport, err := NewTransport(opts.EventBus, opts.KafkaBrokers, opts.ServiceName, logger)
	if err != nil {
		return engine, err
	}

	engine.EventBus = NewEventBus(transport, logger)

	registry, err := NewRegistry(logger, opts.PluginsPath, transport.Publisher)
	if err != nil {
		return engine, err
	}

	manager := adapters.NewManager(registry, logger)

	err = manager.Configure(ctx, cfg.Adapters)
	if err != nil {
		return engine, err
	}

	engine.Adapters = manager

	adapterExecution := services.NewAdapterExecution(manager, logger)
	flows := engine.Persistence.FlowDefinitionRepository()
	events := engine.Persistence.WorkflowEventRepository()

	retry := workflow.DefaultRetryPolicy()
	if opts.MaxRetries > 0 {
		retry.MaxRetries = opts.MaxRetries
	}

	engine.Orchestrator, err = workflow.NewOrchestrator(workflow.Config{
		Flows:          flows,
		Workflows:      engine.Persistence.WorkflowRepository(),
		Events:         events,
		Adapters:       adapterExecution,
		Transformation: transform.NewMapper(flows, logger),
		Publisher:      engine.EventBus,
		Pool:           workflow.NewPool(opts.PoolSize, logger),
		RetryPolicy:    &retry,
		Tracer:         opts.Tracer,
		Logger:         logger,
	})
	if err != nil {
		return engine, err
	}

	engine.Flows = services.NewFlowExecution(engine.Orchestrator, flows, events, adapterExecution, logger)

	return engine, nil
}

// Close drains running workflows, then releases adapters, the event bus and persistence.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error

	if e.Orchestrator != nil {
		errs = append(errs, e.Orchestrator.Shutdown(ctx))
	}

	if e.Adapters != nil {
		errs = append(errs, e.Adapters.Close(ctx))
	}

	if e.EventBus != nil {
		errs = append(errs, e.EventBus.Close())
	}

	if e.Persistence != nil {
		errs = append(errs, e.Persistence.Close(ctx))
	}

	err := errors.Join(errs...)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to close engine", "error", err)
	}

	return err
}
