package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// LossAccum holds an unnormalized loss: the total error accumulated over a
// partition together with the number of examples it covers. Division is
// deferred to aggregation time so that re-aggregation at coarser
// granularity stays exact.
type LossAccum struct {
	Sum   float64 `json:"sum"`
	Count int64   `json:"count"`
}

// MetricState is the raw accumulator state for one model on one partition
// of one client's data.
type MetricState struct {
	Loss        LossAccum `json:"loss"`
	NumExamples int64     `json:"num_examples"`
	NumBatches  int64     `json:"num_batches"`
}

// NormalizedLoss divides the accumulated error by the accumulated example
// count. Loss.Count must be positive.
func (m MetricState) NormalizedLoss() float64 {
	return m.Loss.Sum / float64(m.Loss.Count)
}

// Accumulate runs one model over a fresh single-pass stream from the given
// source and returns the raw accumulated state. An empty stream yields the
// zero MetricState; callers that later divide by the example count must
// guard against it.
func Accumulate(ctx context.Context, model Model, weights Weights, source BatchSource) (MetricState, error) {
	stream, err := source.Batches(ctx)
	if err != nil {
		return MetricState{}, fmt.Errorf("failed to open batch stream: %w", err)
	}

	var state MetricState
	for {
		batch, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return state, nil
		}
		if err != nil {
			return MetricState{}, fmt.Errorf("failed to read batch: %w", err)
		}

		res, err := model.Evaluate(ctx, weights, batch)
		if err != nil {
			return MetricState{}, fmt.Errorf("model evaluation failed: %w", err)
		}

		state.Loss.Sum += res.ErrorSum
		state.Loss.Count += res.NumExamples
		state.NumExamples += res.NumExamples
		state.NumBatches++
	}
}
