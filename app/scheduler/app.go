package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/epochlabs/ledgerx/app/worker/types"
	"github.com/epochlabs/ledgerx/pkg/logging"
	"github.com/epochlabs/ledgerx/pkg/temporal"
	"github.com/epochlabs/ledgerx/pkg/utils"
	"github.com/robfig/cron/v3"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// DefaultCron fires Mondays at 03:00 UTC, shortly after the weekly window
// rolls over.
const DefaultCron = "0 3 * * 1"

type App struct {
	TemporalClient *temporal.Client
	Logger         *zap.Logger
	Input          types.CollectionInput
	CronExpr       string
}

// Initialize loads the collection configuration and connects to Temporal.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		panic(err)
	}

	input, err := loadCollectionInput()
	if err != nil {
		logger.Fatal("Unable to load collection configuration", zap.Error(err))
	}

	cronExpr := utils.Env("COLLECTION_CRON", DefaultCron)
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		logger.Fatal("Invalid COLLECTION_CRON expression",
			zap.String("cron", cronExpr), zap.Error(err))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	return &App{
		TemporalClient: temporalClient,
		Logger:         logger,
		Input:          input,
		CronExpr:       cronExpr,
	}
}

// Run ensures the namespace and the collection schedule exist, then exits.
// The scheduler is a one-shot provisioning job; Temporal drives the firing.
func (a *App) Run(ctx context.Context) error {
	retentionDays := utils.EnvInt("TEMPORAL_RETENTION_DAYS", 30)
	if err := a.TemporalClient.EnsureNamespace(ctx, time.Duration(retentionDays)*24*time.Hour); err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}

	return a.EnsureCollectionSchedule(ctx)
}

// EnsureCollectionSchedule creates the collection schedule if it does not
// already exist. An existing schedule is left untouched so operator edits
// (pauses, spec changes) survive redeploys.
func (a *App) EnsureCollectionSchedule(ctx context.Context) error {
	id := a.TemporalClient.CollectionScheduleID
	h := a.TemporalClient.TSClient.GetHandle(ctx, id)
	if _, err := h.Describe(ctx); err == nil {
		a.Logger.Info("Collection schedule already exists",
			zap.String("id", id),
			zap.String("namespace", a.TemporalClient.Namespace))
		return nil
	} else {
		var notFound *serviceerror.NotFound
		if !errors.As(err, &notFound) {
			return fmt.Errorf("describe schedule: %w", err)
		}
	}

	a.Logger.Info("Creating collection schedule",
		zap.String("id", id),
		zap.String("cron", a.CronExpr),
		zap.String("scope_key", a.Input.ScopeKey))

	_, err := a.TemporalClient.TSClient.Create(ctx, client.ScheduleOptions{
		ID:   id,
		Spec: temporal.CronScheduleSpec(a.CronExpr),
		Action: &client.ScheduleWorkflowAction{
			// Temporal appends the nominal fire time, so runs inside the same
			// window share the scope prefix but never collide across fires.
			ID:                       "collect:" + a.Input.ScopeKey,
			Workflow:                 temporal.CollectionWorkflowName,
			Args:                     []interface{}{a.Input},
			TaskQueue:                a.TemporalClient.LedgerQueue,
			WorkflowExecutionTimeout: 30 * time.Minute,
			WorkflowTaskTimeout:      2 * time.Minute,
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	if err != nil {
		if errors.Is(err, sdktemporal.ErrScheduleAlreadyRunning) {
			a.Logger.Info("Collection schedule created concurrently", zap.String("id", id))
			return nil
		}
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// loadCollectionInput reads the workflow input either from the file named by
// COLLECTION_CONFIG or inline from COLLECTION_CONFIG_JSON.
func loadCollectionInput() (types.CollectionInput, error) {
	var raw []byte

	if path := utils.Env("COLLECTION_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return types.CollectionInput{}, fmt.Errorf("read %s: %w", path, err)
		}
		raw = data
	} else if inline := utils.Env("COLLECTION_CONFIG_JSON", ""); inline != "" {
		raw = []byte(inline)
	} else {
		return types.CollectionInput{}, errors.New("COLLECTION_CONFIG or COLLECTION_CONFIG_JSON is required")
	}

	var input types.CollectionInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return types.CollectionInput{}, fmt.Errorf("parse collection config: %w", err)
	}

	if input.NodeID == "" || input.ScopeID == "" || input.ScopeKey == "" {
		return types.CollectionInput{}, errors.New("nodeId, scopeId and scopeKey are required")
	}
	if len(input.Sources) == 0 {
		return types.CollectionInput{}, errors.New("at least one source is required")
	}
	if input.EpochLengthDays <= 0 {
		input.EpochLengthDays = 7
	}

	return input, nil
}
