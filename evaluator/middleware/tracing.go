package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/evaluator"
)

var _ evaluator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    evaluator.Service
}

func Tracing(tracer trace.Tracer, svc evaluator.Service) evaluator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) CreateRun(ctx context.Context, run evaluator.Run) (evaluator.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "create-run", trace.WithAttributes(
		attribute.String("name", run.Name),
		attribute.String("model_ref", run.ModelRef),
		attribute.String("dataset_ref", run.DatasetRef),
	))
	defer span.End()

	return tm.svc.CreateRun(ctx, run)
}

func (tm *tracing) GetRun(ctx context.Context, id string) (evaluator.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "get-run", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.GetRun(ctx, id)
}

func (tm *tracing) ListRuns(ctx context.Context, offset, limit uint64) (evaluator.RunPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-runs", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRuns(ctx, offset, limit)
}

func (tm *tracing) StartRun(ctx context.Context, id string) (evaluator.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "start-run", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.StartRun(ctx, id)
}

func (tm *tracing) DeleteRun(ctx context.Context, id string) error {
	ctx, span := tm.tracer.Start(ctx, "delete-run", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.DeleteRun(ctx, id)
}

func (tm *tracing) GetReport(ctx context.Context, id string) (evaluation.Report, error) {
	ctx, span := tm.tracer.Start(ctx, "get-report", trace.WithAttributes(
		attribute.String("id", id),
	))
	defer span.End()

	return tm.svc.GetReport(ctx, id)
}
