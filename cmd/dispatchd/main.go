// Command dispatchd is the dispatch core's composition root: it wires the
// VRP solver, the event bus, the async job orchestrator, the route
// assembler, and the predictive draft generator over a shared Postgres
// pool, then runs until told to stop.
//
// dispatchd does not expose a gRPC or HTTP transport of its own — no
// proto-generated service stubs exist for this domain, and generating
// them is outside this process's build. Its background jobs are reached
// through Orchestrator.Submit from an in-process caller, or from a
// transport built directly against the packages wired here.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/bulkimport"
	"dispatch/internal/domain"
	"dispatch/internal/eventbus"
	"dispatch/internal/matrixcache"
	"dispatch/internal/orchestrator"
	"dispatch/internal/planning"
	"dispatch/internal/predictor"
	"dispatch/internal/provider"
	"dispatch/internal/routeassembler"
	"dispatch/internal/statemachine"
	"dispatch/internal/storage"
	"dispatch/internal/vrp"
	"dispatch/migrations"
	"dispatch/pkg/cache"
	"dispatch/pkg/client"
	"dispatch/pkg/config"
	"dispatch/pkg/database"
	"dispatch/pkg/logger"
)

const defaultPort = 50060

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dispatchd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithServiceDefaults("dispatchd", defaultPort)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	log := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool(), &cfg.Database, migrations.FS, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	matrixBackend, err := cache.New(cache.FromConfig(&cfg.Cache))
	if err != nil {
		return fmt.Errorf("constructing cache backend: %w", err)
	}
	defer matrixBackend.Close()
	matrixCache := cache.NewMatrixCache(matrixBackend, cfg.Cache.DefaultTTL)

	breaker := provider.NewBreaker(cfg.Provider.BreakerThreshold, cfg.Provider.BreakerWindow, cfg.Provider.BreakerCooldown)
	routingClient := client.NewRoutingClient(&client.RoutingClientConfig{
		BaseURL:           cfg.Provider.RoutingEndpoint,
		MatrixTimeout:     cfg.Provider.MatrixTimeout,
		DirectionsTimeout: cfg.Provider.DirectionsTimeout,
		MaxRetries:        cfg.Retry.MaxAttempts,
	})
	routingProvider := provider.NewHTTPRoutingProvider(routingClient, breaker)

	predictorBreaker := provider.NewBreaker(cfg.Provider.BreakerThreshold, cfg.Provider.BreakerWindow, cfg.Provider.BreakerCooldown)
	predictorClient := client.NewPredictorClient(&client.PredictorClientConfig{
		BaseURL: cfg.Provider.PredictorEndpoint,
		Timeout: cfg.Provider.PredictorTimeout,
	})
	predictorProvider := provider.NewHTTPPredictor(predictorClient, predictorBreaker)

	resolver := matrixcache.NewResolver(matrixCache, routingProvider, cfg.Solver.AverageSpeedKMH, log)
	solver := vrp.NewSolver(vrp.Config{
		MaxConcurrentSolves: cfg.Solver.MaxConcurrentSolves,
		DefaultBudgetMS:     cfg.Solver.DefaultBudgetMS,
		HardCeilingMS:       cfg.Solver.HardCeilingMS,
		StallWindow:         cfg.Solver.StallWindow,
		CheckpointInterval:  cfg.Solver.CheckpointInterval,
		MaxWaitMinutes:      cfg.Solver.MaxWaitMinutes,
	}, resolver, log)

	generation := strconv.FormatInt(time.Now().UnixNano(), 36)
	bus := eventbus.NewBroker(eventbus.Config{
		ReplayWindow:      cfg.EventBus.ReplayWindow,
		ReplayMaxEvents:   cfg.EventBus.ReplayMaxEvents,
		HeartbeatInterval: cfg.EventBus.HeartbeatInterval,
		MissedHeartbeats:  cfg.EventBus.MissedHeartbeats,
		OutboundQueueSize: cfg.EventBus.OutboundQueueSize,
		DisconnectGrace:   cfg.EventBus.DisconnectGrace,
	}, generation, log)
	defer bus.Close()

	statemachineStore := storage.NewStatemachineStore(db)
	routeAssemblerStore := storage.NewRouteAssemblerStore(db)
	orchestratorStore := storage.NewOrchestratorStore(db)
	predictorStore := storage.NewPredictorStore(db)
	plannerStore := storage.NewPlannerStore(db)
	bulkImportStore := storage.NewBulkImportStore(db)

	// machine enforces order/route transitions for everything outside the
	// solve-and-assemble path (confirmation, cancellation, delivery
	// outcomes) — operations a future request-facing surface will drive.
	// Constructed here so that surface only has to be wired to an
	// already-built engine, not build one itself.
	machine := statemachine.NewMachine(statemachineStore, bus)
	_ = machine
	assembler := routeassembler.New(routeAssemblerStore, bus, routingProvider)
	draftGenerator := predictor.New(predictorStore, bus, predictorProvider, log)
	dayPlanner := planning.NewDayPlanner(plannerStore, solver, assembler)
	importer := bulkimport.New(bulkImportStore)

	orch := orchestrator.New(orchestrator.Config{
		WorkerPoolSize:     cfg.Orchestrator.WorkerPoolSize,
		CancelDeadline:     cfg.Orchestrator.CancelDeadline,
		StalenessThreshold: cfg.Orchestrator.StalenessThreshold,
		ProgressThrottle:   cfg.Orchestrator.ProgressThrottle,
	}, orchestratorStore, bus, log)

	orch.RegisterHandler(orchestrator.KindSpec{
		Kind:          domain.JobOptimizeDay,
		Handler:       dayPlanner.Handler(),
		MaxConcurrent: cfg.Orchestrator.MaxConcurrentOptimize,
	})
	orch.RegisterHandler(orchestrator.KindSpec{
		Kind:          domain.JobBatchPredict,
		Handler:       batchPredictHandler(draftGenerator, predictorStore),
		MaxConcurrent: 1,
	})
	orch.RegisterHandler(orchestrator.KindSpec{
		Kind:          domain.JobBulkImport,
		Handler:       bulkImportHandler(importer),
		MaxConcurrent: 1,
	})

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}

	log.Info("dispatchd started", "generation", generation)
	<-ctx.Done()
	log.Info("shutdown signal received, draining in-flight work")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := orch.Shutdown(shutdownCtx); err != nil {
		log.Error("orchestrator shutdown did not complete cleanly", "error", err)
	}
	if err := solver.Shutdown(shutdownCtx); err != nil {
		log.Error("solver shutdown did not complete cleanly", "error", err)
	}
	return nil
}

// batchPredictHandler adapts predictor.Generator to the orchestrator's
// Handler signature. targetKey is the target delivery date
// (YYYY-MM-DD); input, if non-empty, is a JSON array of customer ids to
// restrict generation to. An empty input runs over every customer.
func batchPredictHandler(gen *predictor.Generator, store *storage.PredictorStore) orchestrator.Handler {
	return func(ctx context.Context, targetKey string, input []byte, report orchestrator.ReportFunc) (string, error) {
		targetDate, err := time.Parse("2006-01-02", targetKey)
		if err != nil {
			return "", fmt.Errorf("parsing target date %q: %w", targetKey, err)
		}

		customerIDs, err := decodeCustomerIDs(input)
		if err != nil {
			return "", err
		}
		if len(customerIDs) == 0 {
			customerIDs, err = store.ListActiveCustomerIDs(ctx)
			if err != nil {
				return "", err
			}
		}

		batchID := uuid.New().String()
		result, err := gen.Generate(ctx, customerIDs, targetDate, batchID)
		if err != nil {
			return "", err
		}
		if report != nil {
			report(1.0, fmt.Sprintf("created %d drafts, skipped %d", len(result.Created), len(result.Skipped)))
		}
		return batchID, nil
	}
}

// bulkImportHandler adapts bulkimport.Importer to the orchestrator's
// Handler signature. input is the uploaded workbook's raw bytes.
func bulkImportHandler(importer *bulkimport.Importer) orchestrator.Handler {
	return func(ctx context.Context, targetKey string, input []byte, report orchestrator.ReportFunc) (string, error) {
		result, err := importer.Import(ctx, input)
		if err != nil {
			return "", err
		}
		if report != nil {
			report(1.0, fmt.Sprintf("upserted %d customers, created %d orders, %d row errors",
				result.CustomersUpserted, result.OrdersCreated, len(result.Errors)))
		}
		handle := fmt.Sprintf("customers=%d orders=%d errors=%d",
			result.CustomersUpserted, result.OrdersCreated, len(result.Errors))
		return handle, nil
	}
}

func decodeCustomerIDs(input []byte) ([]string, error) {
	if len(input) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(input, &ids); err != nil {
		return nil, fmt.Errorf("decoding customer id list: %w", err)
	}
	return ids, nil
}
