package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/evaluator"
)

var _ evaluator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    evaluator.Service
}

func Logging(logger *slog.Logger, svc evaluator.Service) evaluator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) CreateRun(ctx context.Context, run evaluator.Run) (resp evaluator.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("name", run.Name),
				slog.String("model_ref", run.ModelRef),
				slog.String("dataset_ref", run.DatasetRef),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create run failed", args...)

			return
		}
		lm.logger.Info("Create run completed successfully", args...)
	}(time.Now())

	return lm.svc.CreateRun(ctx, run)
}

func (lm *loggingMiddleware) GetRun(ctx context.Context, id string) (resp evaluator.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get run failed", args...)

			return
		}
		lm.logger.Info("Get run completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRun(ctx, id)
}

func (lm *loggingMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (resp evaluator.RunPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List runs failed", args...)

			return
		}
		lm.logger.Info("List runs completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRuns(ctx, offset, limit)
}

func (lm *loggingMiddleware) StartRun(ctx context.Context, id string) (resp evaluator.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start run failed", args...)

			return
		}
		args = append(args,
			slog.Int("clients_total", resp.ClientsTotal),
			slog.Int("clients_dropped", resp.ClientsDropped),
		)
		lm.logger.Info("Start run completed successfully", args...)
	}(time.Now())

	return lm.svc.StartRun(ctx, id)
}

func (lm *loggingMiddleware) DeleteRun(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Delete run failed", args...)

			return
		}
		lm.logger.Info("Delete run completed successfully", args...)
	}(time.Now())

	return lm.svc.DeleteRun(ctx, id)
}

func (lm *loggingMiddleware) GetReport(ctx context.Context, id string) (resp evaluation.Report, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get report failed", args...)

			return
		}
		lm.logger.Info("Get report completed successfully", args...)
	}(time.Now())

	return lm.svc.GetReport(ctx, id)
}
