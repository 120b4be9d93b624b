package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/epochlabs/ledgerx/app/worker/activity"
	"github.com/epochlabs/ledgerx/app/worker/workflow"
	ledgerstore "github.com/epochlabs/ledgerx/pkg/db/ledger"
	"github.com/epochlabs/ledgerx/pkg/logging"
	redisclient "github.com/epochlabs/ledgerx/pkg/redis"
	"github.com/epochlabs/ledgerx/pkg/source"
	"github.com/epochlabs/ledgerx/pkg/source/github"
	"github.com/epochlabs/ledgerx/pkg/temporal"
	"github.com/epochlabs/ledgerx/pkg/utils"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

type App struct {
	Worker         worker.Worker
	Server         *http.Server
	TemporalClient *temporal.Client
	LedgerDB       ledgerstore.Store
	Logger         *zap.Logger
}

// Start starts the worker and the ops server, blocking until the context is
// canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}

	go func() {
		a.Logger.Info("Starting ops server", zap.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("Ops server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker and releases connections.
func (a *App) Stop() {
	a.Worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	a.TemporalClient.Close()
	a.LedgerDB.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("Worker stopped")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	ledgerDb, dbErr := ledgerstore.New(ctx, logger)
	if dbErr != nil {
		logger.Fatal("Unable to initialize ledger database", zap.Error(dbErr))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	registry := source.NewRegistry()
	registry.Register(github.New(logger, github.Opts{
		Token: utils.Env("GITHUB_TOKEN", ""),
	}))

	var redisClient *redisclient.Client
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err = redisclient.NewClient(ctx, logger)
		if err != nil {
			// Run summaries are best effort; the worker runs without them.
			logger.Warn("Unable to connect to Redis, run summaries disabled", zap.Error(err))
			redisClient = nil
		}
	}

	activityContext := &activity.Context{
		Logger:      logger,
		LedgerDB:    ledgerDb,
		Sources:     registry,
		RedisClient: redisClient,
	}
	workflowContext := &workflow.Context{
		ActivityContext: activityContext,
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.LedgerQueue,
		worker.Options{
			MaxConcurrentActivityExecutionSize: utils.EnvInt("MAX_CONCURRENT_ACTIVITIES", 50),
			WorkerStopTimeout:                  1 * time.Minute,
		},
	)

	wkr.RegisterWorkflowWithOptions(
		workflowContext.CollectionWorkflow,
		temporalworkflow.RegisterOptions{
			Name: temporal.CollectionWorkflowName,
		},
	)
	wkr.RegisterActivity(activityContext.EnsureEpoch)
	wkr.RegisterActivity(activityContext.LoadCursor)
	wkr.RegisterActivity(activityContext.CollectFromSource)
	wkr.RegisterActivity(activityContext.InsertEvents)
	wkr.RegisterActivity(activityContext.SaveCursor)
	wkr.RegisterActivity(activityContext.CurateAndResolve)

	return &App{
		Worker:         wkr,
		Server:         NewServer(logger, ledgerDb, redisClient),
		TemporalClient: temporalClient,
		LedgerDB:       ledgerDb,
		Logger:         logger,
	}
}
