package evaluation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodneyosodo/hypcluster/evaluation"
)

// xyBatch is a regression batch with one prediction target per input.
type xyBatch struct {
	xs []float64
	ys []float64
}

// predictModel scores a batch with the sum of squared errors of a
// prediction function. Weights carry the function so that one model value
// can serve several candidates.
type predictModel struct{}

func (predictModel) Evaluate(_ context.Context, weights evaluation.Weights, batch evaluation.Batch) (evaluation.BatchResult, error) {
	predict, ok := weights.(func(float64) float64)
	if !ok {
		return evaluation.BatchResult{}, errors.New("unexpected weights type")
	}
	b, ok := batch.(xyBatch)
	if !ok {
		return evaluation.BatchResult{}, errors.New("unexpected batch type")
	}

	var sum float64
	for i, x := range b.xs {
		diff := predict(x) - b.ys[i]
		sum += diff * diff
	}

	return evaluation.BatchResult{ErrorSum: sum, NumExamples: int64(len(b.xs))}, nil
}

type failingModel struct{}

func (failingModel) Evaluate(context.Context, evaluation.Weights, evaluation.Batch) (evaluation.BatchResult, error) {
	return evaluation.BatchResult{}, errors.New("malformed batch")
}

func zeroPredictor(float64) float64 { return 0 }

func singletonBatches(pairs ...[2]float64) []evaluation.Batch {
	batches := make([]evaluation.Batch, len(pairs))
	for i, p := range pairs {
		batches[i] = xyBatch{xs: []float64{p[0]}, ys: []float64{p[1]}}
	}

	return batches
}

func TestAccumulate(t *testing.T) {
	cases := []struct {
		name     string
		predict  func(float64) float64
		batches  []evaluation.Batch
		expected evaluation.MetricState
	}{
		{
			name:    "zero predictor over three examples",
			predict: zeroPredictor,
			batches: singletonBatches([2]float64{1, 2}, [2]float64{2, 3}, [2]float64{3, 4}),
			expected: evaluation.MetricState{
				Loss:        evaluation.LossAccum{Sum: 29, Count: 3},
				NumExamples: 3,
				NumBatches:  3,
			},
		},
		{
			name:    "perfect predictor accumulates zero loss",
			predict: func(x float64) float64 { return x + 1 },
			batches: singletonBatches([2]float64{1, 2}, [2]float64{2, 3}, [2]float64{3, 4}),
			expected: evaluation.MetricState{
				Loss:        evaluation.LossAccum{Sum: 0, Count: 3},
				NumExamples: 3,
				NumBatches:  3,
			},
		},
		{
			name:    "multi-example batches count once per batch",
			predict: zeroPredictor,
			batches: []evaluation.Batch{
				xyBatch{xs: []float64{1, 2}, ys: []float64{0, 0}},
				xyBatch{xs: []float64{3}, ys: []float64{0}},
			},
			expected: evaluation.MetricState{
				Loss:        evaluation.LossAccum{Sum: 0, Count: 3},
				NumExamples: 3,
				NumBatches:  2,
			},
		},
		{
			name:     "empty stream yields zero state",
			predict:  zeroPredictor,
			batches:  nil,
			expected: evaluation.MetricState{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state, err := evaluation.Accumulate(
				t.Context(), predictModel{}, tc.predict,
				evaluation.NewSliceSource(tc.batches...),
			)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, state)
		})
	}
}

func TestAccumulateModelError(t *testing.T) {
	_, err := evaluation.Accumulate(
		t.Context(), failingModel{}, nil,
		evaluation.NewSliceSource(singletonBatches([2]float64{1, 2})...),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model evaluation failed")
}
