package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/pkg/dataset"
)

const defaultWorkers = 4

type runOutcome struct {
	report    evaluation.Report
	numModels int
	total     int
	dropped   int
}

// evaluateAll fans client evaluations out over a bounded worker pool and
// reduces the surviving results into one report. A failing client is
// dropped from the aggregation and from N, whether its data could not be
// read or its evaluation failed; it never aborts the run. Only a cancelled
// context or zero surviving clients fail the run.
func evaluateAll(ctx context.Context, candidates []evaluation.Candidate, clients dataset.Iterator, workers int, logger *slog.Logger) (runOutcome, error) {
	if len(candidates) == 0 {
		return runOutcome{}, evaluation.ErrNoCandidates
	}
	if workers < 1 {
		workers = defaultWorkers
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		results []evaluation.ClientResult
		total   int
		dropped int
	)
	g.SetLimit(workers)

	for {
		data, err := clients.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				_ = g.Wait()

				return runOutcome{}, fmt.Errorf("failed to read client population: %w", err)
			}

			// One client's data is unreadable; the rest of the
			// population is still worth evaluating.
			total++
			dropped++
			logger.WarnContext(ctx, "Dropping unreadable client from aggregation",
				slog.Any("error", err))

			continue
		}

		total++
		g.Go(func() error {
			res, err := evaluation.EvaluateClient(ctx, candidates, data)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				dropped++
				logger.WarnContext(ctx, "Dropping client from aggregation",
					slog.String("client_id", data.ID), slog.Any("error", err))

				return nil
			}
			results = append(results, res)

			return nil
		})
	}

	_ = g.Wait()

	report, err := evaluation.Aggregate(results, len(candidates))
	if err != nil {
		return runOutcome{total: total, dropped: dropped}, err
	}

	return runOutcome{
		report:    report,
		numModels: len(candidates),
		total:     total,
		dropped:   dropped,
	}, nil
}
