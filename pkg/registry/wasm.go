package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/tetratelabs/wazero"
	wazeroapi "github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/pkg/dataset"
)

// Wasm module ABI: the module exports alloc(size) -> ptr,
// free(ptr, size) and evaluate(ptr, size) -> (outPtr << 32) | outSize.
// Request and response travel as CBOR in module memory.
const (
	wasmAllocFn    = "alloc"
	wasmFreeFn     = "free"
	wasmEvaluateFn = "evaluate"
)

var (
	errMissingExport = errors.New("wasm module is missing a required export")
	errWasmMemory    = errors.New("wasm module memory access out of range")
)

type wasmEvalRequest struct {
	Weights []byte      `cbor:"weights"`
	Inputs  [][]float64 `cbor:"inputs"`
	Targets []float64   `cbor:"targets"`
}

type wasmEvalResponse struct {
	ErrorSum    float64 `cbor:"error_sum"`
	NumExamples int64   `cbor:"num_examples"`
}

// wasmModel adapts one instantiated wasm module to the Model capability.
// Module instances are not reentrant; calls are serialized.
type wasmModel struct {
	mu       sync.Mutex
	module   wazeroapi.Module
	alloc    wazeroapi.Function
	free     wazeroapi.Function
	evaluate wazeroapi.Function
}

func newWasmModel(ctx context.Context, runtime wazero.Runtime, binary []byte, name string) (*wasmModel, error) {
	// One instance per candidate in a shared runtime; names must be unique.
	cfg := wazero.NewModuleConfig().WithName(name).WithStartFunctions("_initialize")
	module, err := runtime.InstantiateWithConfig(ctx, binary, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate wasm module: %w", err)
	}

	m := &wasmModel{
		module:   module,
		alloc:    module.ExportedFunction(wasmAllocFn),
		free:     module.ExportedFunction(wasmFreeFn),
		evaluate: module.ExportedFunction(wasmEvaluateFn),
	}
	if m.alloc == nil || m.free == nil || m.evaluate == nil {
		return nil, errMissingExport
	}

	return m, nil
}

func (m *wasmModel) Evaluate(ctx context.Context, weights evaluation.Weights, batch evaluation.Batch) (evaluation.BatchResult, error) {
	w, ok := weights.([]byte)
	if !ok {
		return evaluation.BatchResult{}, fmt.Errorf("wasm model: unexpected weights type %T", weights)
	}
	b, ok := batch.(dataset.Batch)
	if !ok {
		return evaluation.BatchResult{}, fmt.Errorf("wasm model: unexpected batch type %T", batch)
	}

	request, err := cbor.Marshal(wasmEvalRequest{
		Weights: w,
		Inputs:  b.Inputs,
		Targets: b.Targets,
	})
	if err != nil {
		return evaluation.BatchResult{}, fmt.Errorf("failed to encode wasm request: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	allocated, err := m.alloc.Call(ctx, uint64(len(request)))
	if err != nil {
		return evaluation.BatchResult{}, fmt.Errorf("wasm alloc failed: %w", err)
	}
	ptr := allocated[0]
	defer func() {
		_, _ = m.free.Call(ctx, ptr, uint64(len(request)))
	}()

	if !m.module.Memory().Write(uint32(ptr), request) {
		return evaluation.BatchResult{}, errWasmMemory
	}

	results, err := m.evaluate.Call(ctx, ptr, uint64(len(request)))
	if err != nil {
		return evaluation.BatchResult{}, fmt.Errorf("wasm evaluate failed: %w", err)
	}

	outPtr := uint32(results[0] >> 32)
	outSize := uint32(results[0])
	data, ok := m.module.Memory().Read(outPtr, outSize)
	if !ok {
		return evaluation.BatchResult{}, errWasmMemory
	}

	var response wasmEvalResponse
	if err := cbor.Unmarshal(data, &response); err != nil {
		return evaluation.BatchResult{}, fmt.Errorf("failed to decode wasm response: %w", err)
	}
	_, _ = m.free.Call(ctx, uint64(outPtr), uint64(outSize))

	return evaluation.BatchResult{
		ErrorSum:    response.ErrorSum,
		NumExamples: response.NumExamples,
	}, nil
}

func loadWasmBundle(ctx context.Context, dir string, manifest Manifest) (*Bundle, error) {
	if manifest.Wasm == "" {
		return nil, ErrMissingWasm
	}

	binary, err := os.ReadFile(filepath.Join(dir, manifest.Wasm))
	if err != nil {
		return nil, fmt.Errorf("failed to read wasm module: %w", err)
	}

	runtime := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	bundle := &Bundle{
		Name: manifest.Name,
		closers: []func(ctx context.Context) error{
			runtime.Close,
		},
	}

	bundle.Candidates = make([]evaluation.Candidate, len(manifest.Candidates))
	for i, spec := range manifest.Candidates {
		if spec.Weights == "" {
			return nil, fmt.Errorf("candidate %d: %w", i, ErrMissingWeights)
		}
		weights, err := os.ReadFile(filepath.Join(dir, spec.Weights))
		if err != nil {
			return nil, fmt.Errorf("failed to read weights for candidate %d: %w", i, err)
		}

		model, err := newWasmModel(ctx, runtime, binary, fmt.Sprintf("candidate-%d", i))
		if err != nil {
			return nil, err
		}

		bundle.Candidates[i] = evaluation.Candidate{
			Name:    spec.Name,
			Model:   model,
			Weights: weights,
		}
	}

	return bundle, nil
}
