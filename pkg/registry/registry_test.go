package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/pkg/dataset"
	"github.com/rodneyosodo/hypcluster/pkg/registry"
)

func writeBundleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadLinearBundle(t *testing.T) {
	dir := t.TempDir()
	writeBundleFile(t, dir, "manifest.toml", `
name = "emnist"
runtime = "linear"

[[candidates]]
name = "low-lr"
coeffs = [2.0]
bias = 0.5

[[candidates]]
name = "high-lr"
weights = "high-lr.json"
`)
	writeBundleFile(t, dir, "high-lr.json", `{"coeffs": [3.0], "bias": 1.0}`)

	bundle, err := registry.New(registry.OCIConfig{}).Load(t.Context(), dir)
	require.NoError(t, err)
	defer bundle.Close(t.Context())

	assert.Equal(t, "emnist", bundle.Name)
	require.Len(t, bundle.Candidates, 2)
	assert.Equal(t, "low-lr", bundle.Candidates[0].Name)
	assert.Equal(t, registry.LinearWeights{Coeffs: []float64{2.0}, Bias: 0.5}, bundle.Candidates[0].Weights)
	assert.Equal(t, registry.LinearWeights{Coeffs: []float64{3.0}, Bias: 1.0}, bundle.Candidates[1].Weights)
}

func TestLoadBundleErrors(t *testing.T) {
	cases := []struct {
		name     string
		manifest string
		err      error
	}{
		{
			name: "missing manifest",
			err:  registry.ErrNoManifest,
		},
		{
			name:     "no candidates",
			manifest: "name = \"empty\"\nruntime = \"linear\"\n",
			err:      registry.ErrEmptyBundle,
		},
		{
			name:     "unknown runtime",
			manifest: "runtime = \"onnx\"\n\n[[candidates]]\nname = \"a\"\ncoeffs = [1.0]\n",
			err:      registry.ErrUnknownRuntime,
		},
		{
			name:     "no weights",
			manifest: "runtime = \"linear\"\n\n[[candidates]]\nname = \"a\"\n",
			err:      registry.ErrMissingWeights,
		},
		{
			name:     "wasm without binary",
			manifest: "runtime = \"wasm\"\n\n[[candidates]]\nname = \"a\"\nweights = \"a.bin\"\n",
			err:      registry.ErrMissingWasm,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if tc.manifest != "" {
				writeBundleFile(t, dir, "manifest.toml", tc.manifest)
			}

			_, err := registry.New(registry.OCIConfig{}).Load(t.Context(), dir)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestLinearModelEvaluate(t *testing.T) {
	model := registry.LinearModel{}
	weights := registry.LinearWeights{Coeffs: []float64{2.0}, Bias: 1.0}

	res, err := model.Evaluate(t.Context(), weights, dataset.Batch{
		Inputs:  [][]float64{{1}, {2}},
		Targets: []float64{3, 4},
	})
	require.NoError(t, err)

	// Predictions 3 and 5, residuals 0 and 1.
	assert.InDelta(t, 1.0, res.ErrorSum, 1e-9)
	assert.Equal(t, int64(2), res.NumExamples)
}

func TestLinearBundleSelectsClosestFit(t *testing.T) {
	dir := t.TempDir()
	writeBundleFile(t, dir, "manifest.toml", `
runtime = "linear"

[[candidates]]
name = "identity"
coeffs = [1.0]

[[candidates]]
name = "double"
coeffs = [2.0]
`)

	bundle, err := registry.New(registry.OCIConfig{}).Load(t.Context(), dir)
	require.NoError(t, err)
	defer bundle.Close(t.Context())

	// Targets are twice the inputs, so the second candidate fits exactly.
	data := evaluation.ClientData{
		ID: "doubling-client",
		Selection: evaluation.NewSliceSource(dataset.Batch{
			Inputs:  [][]float64{{1}, {2}},
			Targets: []float64{2, 4},
		}),
		Test: evaluation.NewSliceSource(dataset.Batch{
			Inputs:  [][]float64{{3}},
			Targets: []float64{6},
		}),
	}

	res, err := evaluation.EvaluateClient(t.Context(), bundle.Candidates, data)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ChosenIndex)
	assert.InDelta(t, 0.0, res.TestMetrics[1].NormalizedLoss(), 1e-9)
	assert.InDelta(t, 9.0, res.TestMetrics[0].NormalizedLoss(), 1e-9)
}

func TestLinearModelEvaluateErrors(t *testing.T) {
	model := registry.LinearModel{}
	weights := registry.LinearWeights{Coeffs: []float64{2.0}, Bias: 1.0}

	_, err := model.Evaluate(t.Context(), "bad", dataset.Batch{})
	assert.Error(t, err)

	_, err = model.Evaluate(t.Context(), weights, "bad")
	assert.Error(t, err)

	_, err = model.Evaluate(t.Context(), weights, dataset.Batch{
		Inputs:  [][]float64{{1}},
		Targets: []float64{1, 2},
	})
	assert.Error(t, err)

	_, err = model.Evaluate(t.Context(), weights, dataset.Batch{
		Inputs:  [][]float64{{1, 2}},
		Targets: []float64{1},
	})
	assert.Error(t, err)
}
