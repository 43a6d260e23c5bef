package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/evaluator"
)

var _ evaluator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     evaluator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc evaluator.Service) evaluator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) CreateRun(ctx context.Context, run evaluator.Run) (evaluator.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-run").Add(1)
		mm.latency.With("method", "create-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateRun(ctx, run)
}

func (mm *metricsMiddleware) GetRun(ctx context.Context, id string) (evaluator.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-run").Add(1)
		mm.latency.With("method", "get-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRun(ctx, id)
}

func (mm *metricsMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (evaluator.RunPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-runs").Add(1)
		mm.latency.With("method", "list-runs").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRuns(ctx, offset, limit)
}

func (mm *metricsMiddleware) StartRun(ctx context.Context, id string) (evaluator.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start-run").Add(1)
		mm.latency.With("method", "start-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StartRun(ctx, id)
}

func (mm *metricsMiddleware) DeleteRun(ctx context.Context, id string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "delete-run").Add(1)
		mm.latency.With("method", "delete-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.DeleteRun(ctx, id)
}

func (mm *metricsMiddleware) GetReport(ctx context.Context, id string) (evaluation.Report, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-report").Add(1)
		mm.latency.With("method", "get-report").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetReport(ctx, id)
}
