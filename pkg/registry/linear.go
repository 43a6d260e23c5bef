package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/pkg/dataset"
)

// LinearWeights parameterize the built-in affine regression model
// y = coeffs . x + bias.
type LinearWeights struct {
	Coeffs []float64 `json:"coeffs"`
	Bias   float64   `json:"bias"`
}

// LinearModel scores dataset batches with the sum of squared errors of an
// affine prediction. It is stateless; one value serves every candidate.
type LinearModel struct{}

func (LinearModel) Evaluate(_ context.Context, weights evaluation.Weights, batch evaluation.Batch) (evaluation.BatchResult, error) {
	w, ok := weights.(LinearWeights)
	if !ok {
		return evaluation.BatchResult{}, fmt.Errorf("linear model: unexpected weights type %T", weights)
	}
	b, ok := batch.(dataset.Batch)
	if !ok {
		return evaluation.BatchResult{}, fmt.Errorf("linear model: unexpected batch type %T", batch)
	}
	if len(b.Inputs) != len(b.Targets) {
		return evaluation.BatchResult{}, fmt.Errorf("linear model: %d inputs but %d targets", len(b.Inputs), len(b.Targets))
	}

	var sum float64
	for i, x := range b.Inputs {
		if len(x) != len(w.Coeffs) {
			return evaluation.BatchResult{}, fmt.Errorf("linear model: input dimension %d does not match %d coefficients", len(x), len(w.Coeffs))
		}
		pred := w.Bias
		for j, v := range x {
			pred += w.Coeffs[j] * v
		}
		diff := pred - b.Targets[i]
		sum += diff * diff
	}

	return evaluation.BatchResult{
		ErrorSum:    sum,
		NumExamples: int64(len(b.Inputs)),
	}, nil
}

func loadLinearBundle(dir string, manifest Manifest) (*Bundle, error) {
	candidates := make([]evaluation.Candidate, len(manifest.Candidates))
	for i, spec := range manifest.Candidates {
		weights := LinearWeights{Coeffs: spec.Coeffs, Bias: spec.Bias}
		if spec.Weights != "" {
			data, err := os.ReadFile(filepath.Join(dir, spec.Weights))
			if err != nil {
				return nil, fmt.Errorf("failed to read weights for candidate %d: %w", i, err)
			}
			if err := json.Unmarshal(data, &weights); err != nil {
				return nil, fmt.Errorf("failed to parse weights for candidate %d: %w", i, err)
			}
		}
		if len(weights.Coeffs) == 0 {
			return nil, fmt.Errorf("candidate %d: %w", i, ErrMissingWeights)
		}

		candidates[i] = evaluation.Candidate{
			Name:    spec.Name,
			Model:   LinearModel{},
			Weights: weights,
		}
	}

	return &Bundle{Name: manifest.Name, Candidates: candidates}, nil
}
