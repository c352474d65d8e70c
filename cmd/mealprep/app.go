package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"

	httpadapter "github.com/PabloGalante/mealprep-agent/internal/adapters/http"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/kitchen"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/llm"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/file"
	firestorestore "github.com/PabloGalante/mealprep-agent/internal/adapters/storage/firestore"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/mealprep-agent/internal/app/agentflow"
	"github.com/PabloGalante/mealprep-agent/internal/app/history"
	"github.com/PabloGalante/mealprep-agent/internal/app/memorybank"
	"github.com/PabloGalante/mealprep-agent/internal/app/planning"
	"github.com/PabloGalante/mealprep-agent/internal/app/tools"
	"github.com/PabloGalante/mealprep-agent/internal/config"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
	"github.com/PabloGalante/mealprep-agent/internal/observability"
)

// app is the wired process: one provider, one session store, one memory bank.
type app struct {
	obs     *observability.Provider
	svc     *planning.Service
	history *history.Service
	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (a *app, err error) {
	obs, err := observability.New(ctx, observability.Options{
		ServiceName: appName,
		Version:     Version,
		Level:       observability.ParseLevel(cfg.LogLevel),
		Exporter:    observability.ExporterType(cfg.TraceExporter),
		LogOutput:   logOut,
		TraceOutput: logOut,
	})
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	a = &app{obs: obs}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()
	log := obs.Logger()

	var llmClient domain.LLMClient
	if cfg.LLM.UseMock {
		log.Info("using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Info("using Vertex LLM client", "project", cfg.LLM.GCPProjectID, "model", cfg.LLM.ModelName)
		llmClient, err = llm.NewVertexClient(ctx, cfg.LLM.GCPProjectID, cfg.LLM.GCPLocation, cfg.LLM.ModelName)
		if err != nil {
			return nil, fmt.Errorf("error initializing Vertex LLM client: %w", err)
		}
	}

	backend, err := a.snapshotBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	bank := memorybank.New(ctx, backend, obs)

	var catalogOpts []kitchen.CatalogOption
	if cfg.Workflow.RecipeLatency > 0 {
		catalogOpts = append(catalogOpts, kitchen.WithLatency(cfg.Workflow.RecipeLatency))
	}
	orch := agentflow.NewOrchestrator(agentflow.Workers{
		Planner:   kitchen.NewLLMPlanner(llmClient),
		Recipes:   kitchen.NewCatalog(catalogOpts...),
		Lists:     kitchen.NewOptimizer(),
		Nutrition: kitchen.NewEstimator(),
	}, agentflow.Config{
		PlannerTimeout:    cfg.Workflow.PlannerTimeout,
		RecipeTimeout:     cfg.Workflow.RecipeTimeout,
		RecipeConcurrency: cfg.Workflow.RecipeConcurrency,
		ListTimeout:       cfg.Workflow.ListTimeout,
		NutritionTimeout:  cfg.Workflow.NutritionTimeout,
	}, obs)

	sessions := memory.NewSessionStore(cfg.Session.Timeout)
	a.svc = planning.NewService(sessions, bank, orch, tools.NewOrderLinksTool(), obs)
	a.history = history.NewService(bank)
	return a, nil
}

func (a *app) snapshotBackend(ctx context.Context, cfg *config.Config) (domain.SnapshotStore, error) {
	log := a.obs.Logger().With("memory_backend", cfg.Memory.Backend)

	switch cfg.Memory.Backend {
	case config.BackendMemory:
		log.Info("using in-memory snapshot store")
		return memory.NewSnapshotStore(), nil
	case config.BackendSQLite:
		log.Info("using sqlite snapshot store", "path", cfg.Memory.SQLitePath)
		s, err := sqlite.NewStore(cfg.Memory.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("error initializing sqlite store: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil
	case config.BackendFirestore:
		log.Info("using firestore snapshot store", "project", cfg.LLM.GCPProjectID, "collection", cfg.Memory.Collection)
		s, err := firestorestore.NewStore(ctx, cfg.LLM.GCPProjectID, cfg.Memory.Collection)
		if err != nil {
			return nil, fmt.Errorf("error initializing Firestore store: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		log.Info("using file snapshot store", "dir", cfg.Memory.Dir)
		s, err := file.NewStore(cfg.Memory.Dir)
		if err != nil {
			return nil, fmt.Errorf("error initializing file store: %w", err)
		}
		return s, nil
	}
}

func (a *app) handler() http.Handler {
	return httpadapter.NewServer(a.svc, a.history, a.obs)
}

// sweep evicts expired sessions every interval until ctx is done.
func (a *app) sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.svc.SweepSessions(ctx)
		}
	}
}

// Close flushes telemetry and releases the storage backends.
func (a *app) Close() error {
	var result *multierror.Error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.obs.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		a.obs.Logger().Error("shutdown failed", "error", err)
		return err
	}
	return nil
}
