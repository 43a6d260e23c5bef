package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/google/uuid"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/pkg/dataset"
	"github.com/rodneyosodo/hypcluster/pkg/mqtt"
	"github.com/rodneyosodo/hypcluster/pkg/registry"
	"github.com/rodneyosodo/hypcluster/pkg/storage"
)

var (
	// ErrRunNotStartable indicates a start request for a run that is not
	// pending.
	ErrRunNotStartable = errors.New("run is not in a startable state")

	// ErrReportNotReady indicates a report request for a run that has not
	// completed.
	ErrReportNotReady = errors.New("run has not produced a report")

	namegen = namegenerator.NewGenerator()
)

type Service interface {
	// CreateRun registers a pending evaluation run.
	CreateRun(ctx context.Context, run Run) (Run, error)

	// GetRun returns a run by ID.
	GetRun(ctx context.Context, id string) (Run, error)

	// ListRuns pages over registered runs in creation order.
	ListRuns(ctx context.Context, offset, limit uint64) (RunPage, error)

	// StartRun executes a pending run to completion: it loads the
	// candidate bundle, evaluates every client, aggregates the surviving
	// results and stores the report.
	StartRun(ctx context.Context, id string) (Run, error)

	// DeleteRun removes a run and its report.
	DeleteRun(ctx context.Context, id string) error

	// GetReport returns the aggregate report of a completed run.
	GetReport(ctx context.Context, id string) (evaluation.Report, error)
}

type service struct {
	runsDB    storage.Storage[Run]
	registry  registry.Registry
	datasets  dataset.Resolver
	pubsub    mqtt.PubSub
	baseTopic string
	workers   int
	logger    *slog.Logger
}

// NewService wires run storage, the model registry, the dataset resolver
// and an optional pubsub for report publication. pubsub may be nil.
func NewService(runsDB storage.Storage[Run], reg registry.Registry, datasets dataset.Resolver, pubsub mqtt.PubSub, baseTopic string, workers int, logger *slog.Logger) Service {
	return &service{
		runsDB:    runsDB,
		registry:  reg,
		datasets:  datasets,
		pubsub:    pubsub,
		baseTopic: baseTopic,
		workers:   workers,
		logger:    logger,
	}
}

func (svc *service) CreateRun(ctx context.Context, run Run) (Run, error) {
	run.ID = uuid.NewString()
	if run.Name == "" {
		run.Name = namegen.Generate()
	}
	run.State = Pending
	run.CreatedAt = time.Now()
	run.Report = nil
	run.Error = ""

	if err := svc.runsDB.Create(ctx, run.ID, run); err != nil {
		return Run{}, err
	}

	return run, nil
}

func (svc *service) GetRun(ctx context.Context, id string) (Run, error) {
	return svc.runsDB.Get(ctx, id)
}

func (svc *service) ListRuns(ctx context.Context, offset, limit uint64) (RunPage, error) {
	runs, total, err := svc.runsDB.List(ctx, offset, limit)
	if err != nil {
		return RunPage{}, err
	}

	return RunPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Runs:   runs,
	}, nil
}

func (svc *service) StartRun(ctx context.Context, id string) (Run, error) {
	run, err := svc.runsDB.Get(ctx, id)
	if err != nil {
		return Run{}, err
	}
	if run.State != Pending {
		return Run{}, fmt.Errorf("run %s is %s: %w", id, run.State, ErrRunNotStartable)
	}

	run.State = Running
	run.StartedAt = time.Now()
	if err := svc.runsDB.Update(ctx, run.ID, run); err != nil {
		return Run{}, err
	}

	outcome, err := svc.execute(ctx, run)
	run.FinishedAt = time.Now()
	run.ClientsTotal = outcome.total
	run.ClientsDropped = outcome.dropped
	if err != nil {
		run.State = Failed
		run.Error = err.Error()
		if uerr := svc.runsDB.Update(ctx, run.ID, run); uerr != nil {
			return Run{}, uerr
		}

		return run, err
	}

	run.State = Completed
	run.NumModels = outcome.numModels
	run.Report = &outcome.report
	if err := svc.runsDB.Update(ctx, run.ID, run); err != nil {
		return Run{}, err
	}

	svc.publishReport(ctx, run)

	return run, nil
}

func (svc *service) DeleteRun(ctx context.Context, id string) error {
	return svc.runsDB.Delete(ctx, id)
}

func (svc *service) GetReport(ctx context.Context, id string) (evaluation.Report, error) {
	run, err := svc.runsDB.Get(ctx, id)
	if err != nil {
		return evaluation.Report{}, err
	}
	if run.State != Completed || run.Report == nil {
		return evaluation.Report{}, fmt.Errorf("run %s is %s: %w", id, run.State, ErrReportNotReady)
	}

	return *run.Report, nil
}

func (svc *service) execute(ctx context.Context, run Run) (runOutcome, error) {
	bundle, err := svc.registry.Load(ctx, run.ModelRef)
	if err != nil {
		return runOutcome{}, fmt.Errorf("failed to load model bundle %s: %w", run.ModelRef, err)
	}
	defer func() {
		if cerr := bundle.Close(ctx); cerr != nil {
			svc.logger.WarnContext(ctx, "Failed to close model bundle",
				slog.String("run_id", run.ID), slog.Any("error", cerr))
		}
	}()

	provider, err := svc.datasets.Resolve(ctx, run.DatasetRef)
	if err != nil {
		return runOutcome{}, err
	}
	clients, err := provider.Clients(ctx)
	if err != nil {
		return runOutcome{}, err
	}

	workers := run.Workers
	if workers < 1 {
		workers = svc.workers
	}

	return evaluateAll(ctx, bundle.Candidates, clients, workers, svc.logger)
}

func (svc *service) publishReport(ctx context.Context, run Run) {
	if svc.pubsub == nil {
		return
	}

	topic := svc.baseTopic + "/runs/" + run.ID + "/report"
	if err := svc.pubsub.Publish(ctx, topic, run.Report); err != nil {
		svc.logger.WarnContext(ctx, "Failed to publish report",
			slog.String("run_id", run.ID), slog.Any("error", err))

		return
	}

	svc.logger.InfoContext(ctx, "Published report",
		slog.String("run_id", run.ID), slog.String("topic", topic))
}
