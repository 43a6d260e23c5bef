package evaluation

import (
	"context"
	"fmt"
)

// ClientResult holds one client's raw per-model accumulator states for both
// partitions plus the index of the model the client selected. Immutable
// once produced.
type ClientResult struct {
	ClientID         string        `json:"client_id"`
	SelectionMetrics []MetricState `json:"selection_metrics"`
	TestMetrics      []MetricState `json:"test_metrics"`
	ChosenIndex      int           `json:"chosen_index"`
}

// EvaluateClient evaluates every candidate on one client's data. The
// selection partition alone decides the chosen index (arg-min normalized
// loss, ties to the smallest index); test metrics are computed for all
// candidates so that per-model aggregation stays possible. Pure function of
// its inputs, safe to run concurrently across clients.
func EvaluateClient(ctx context.Context, candidates []Candidate, data ClientData) (ClientResult, error) {
	if len(candidates) == 0 {
		return ClientResult{}, ErrNoCandidates
	}

	selection := make([]MetricState, len(candidates))
	for i, c := range candidates {
		state, err := Accumulate(ctx, c.Model, c.Weights, data.Selection)
		if err != nil {
			return ClientResult{}, fmt.Errorf("selection pass for model %d on client %s: %w", i, data.ID, err)
		}
		if state.Loss.Count == 0 {
			return ClientResult{}, fmt.Errorf("client %s has an empty selection partition for model %d: %w", data.ID, i, ErrInvalidClientData)
		}
		selection[i] = state
	}

	chosen := 0
	best := selection[0].NormalizedLoss()
	for i := 1; i < len(candidates); i++ {
		if loss := selection[i].NormalizedLoss(); loss < best {
			best = loss
			chosen = i
		}
	}

	test := make([]MetricState, len(candidates))
	for i, c := range candidates {
		state, err := Accumulate(ctx, c.Model, c.Weights, data.Test)
		if err != nil {
			return ClientResult{}, fmt.Errorf("test pass for model %d on client %s: %w", i, data.ID, err)
		}
		test[i] = state
	}

	return ClientResult{
		ClientID:         data.ID,
		SelectionMetrics: selection,
		TestMetrics:      test,
		ChosenIndex:      chosen,
	}, nil
}
