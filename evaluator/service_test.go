package evaluator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/evaluator"
	"github.com/rodneyosodo/hypcluster/pkg/dataset"
	pkgerrors "github.com/rodneyosodo/hypcluster/pkg/errors"
	"github.com/rodneyosodo/hypcluster/pkg/mqtt"
	"github.com/rodneyosodo/hypcluster/pkg/registry"
	"github.com/rodneyosodo/hypcluster/pkg/storage"
)

type biasModel struct{}

func (biasModel) Evaluate(_ context.Context, w evaluation.Weights, b evaluation.Batch) (evaluation.BatchResult, error) {
	diff := b.(float64) - w.(float64)

	return evaluation.BatchResult{ErrorSum: diff * diff, NumExamples: 1}, nil
}

type stubRegistry struct {
	bundle *registry.Bundle
	err    error
}

func (r stubRegistry) Load(_ context.Context, _ string) (*registry.Bundle, error) {
	if r.err != nil {
		return nil, r.err
	}

	return r.bundle, nil
}

type sliceIterator struct {
	clients []evaluation.ClientData
	pos     int
}

func (it *sliceIterator) Next(_ context.Context) (evaluation.ClientData, error) {
	if it.pos >= len(it.clients) {
		return evaluation.ClientData{}, io.EOF
	}
	c := it.clients[it.pos]
	it.pos++

	return c, nil
}

type stubResolver struct {
	clients []evaluation.ClientData
	err     error
}

func (r stubResolver) Resolve(_ context.Context, _ string) (dataset.Provider, error) {
	if r.err != nil {
		return nil, r.err
	}

	return r, nil
}

func (r stubResolver) Clients(_ context.Context) (dataset.Iterator, error) {
	return &sliceIterator{clients: r.clients}, nil
}

type stubPubSub struct {
	mu     sync.Mutex
	topics []string
}

func (p *stubPubSub) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)

	return nil
}

func (p *stubPubSub) Subscribe(_ context.Context, _ string, _ mqtt.Handler) error {
	return nil
}

func (p *stubPubSub) Disconnect(_ context.Context) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func biasBundle(biases ...float64) *registry.Bundle {
	b := &registry.Bundle{Name: "bias"}
	for _, bias := range biases {
		b.Candidates = append(b.Candidates, evaluation.Candidate{
			Name:    "bias",
			Model:   biasModel{},
			Weights: bias,
		})
	}

	return b
}

func biasClient(id string, selection, test float64) evaluation.ClientData {
	return evaluation.ClientData{
		ID:        id,
		Selection: evaluation.NewSliceSource(selection),
		Test:      evaluation.NewSliceSource(test),
	}
}

func TestCreateRun(t *testing.T) {
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{}, stubResolver{}, nil, "hypcluster", 0, discardLogger(),
	)

	run, err := svc.CreateRun(t.Context(), evaluator.Run{
		ModelRef:   "./bundles/test",
		DatasetRef: "./datasets/test",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.NotEmpty(t, run.Name)
	assert.Equal(t, evaluator.Pending, run.State)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := svc.GetRun(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestCreateRunKeepsName(t *testing.T) {
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{}, stubResolver{}, nil, "hypcluster", 0, discardLogger(),
	)

	run, err := svc.CreateRun(t.Context(), evaluator.Run{
		Name:       "emnist-sweep",
		ModelRef:   "./bundles/test",
		DatasetRef: "./datasets/test",
	})
	require.NoError(t, err)
	assert.Equal(t, "emnist-sweep", run.Name)
}

func TestGetRunNotFound(t *testing.T) {
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{}, stubResolver{}, nil, "hypcluster", 0, discardLogger(),
	)

	_, err := svc.GetRun(t.Context(), "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{}, stubResolver{}, nil, "hypcluster", 0, discardLogger(),
	)

	for range 3 {
		_, err := svc.CreateRun(t.Context(), evaluator.Run{
			ModelRef:   "./bundles/test",
			DatasetRef: "./datasets/test",
		})
		require.NoError(t, err)
	}

	page, err := svc.ListRuns(t.Context(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	assert.Len(t, page.Runs, 2)

	page, err = svc.ListRuns(t.Context(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Runs, 1)
}

func TestStartRun(t *testing.T) {
	pubsub := &stubPubSub{}
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{bundle: biasBundle(0, 1)},
		stubResolver{clients: []evaluation.ClientData{
			biasClient("alice", 0, 2),
			biasClient("bob", 1, 3),
		}},
		pubsub, "hypcluster", 0, discardLogger(),
	)

	run, err := svc.CreateRun(t.Context(), evaluator.Run{
		ModelRef:   "./bundles/test",
		DatasetRef: "./datasets/test",
	})
	require.NoError(t, err)

	run, err = svc.StartRun(t.Context(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, evaluator.Completed, run.State)
	assert.Equal(t, 2, run.NumModels)
	assert.Equal(t, 2, run.ClientsTotal)
	assert.Equal(t, 0, run.ClientsDropped)
	assert.False(t, run.FinishedAt.IsZero())

	require.NotNil(t, run.Report)
	assert.InDelta(t, 0.5, run.Report.Choose[0], 1e-9)
	assert.InDelta(t, 0.5, run.Report.Choose[1], 1e-9)
	assert.InDelta(t, 4.0, run.Report.Best.Loss, 1e-9)
	assert.InDelta(t, 6.5, run.Report.Models[0].Loss, 1e-9)
	assert.InDelta(t, 2.5, run.Report.Models[1].Loss, 1e-9)

	report, err := svc.GetReport(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, *run.Report, report)

	require.Len(t, pubsub.topics, 1)
	assert.Equal(t, "hypcluster/runs/"+run.ID+"/report", pubsub.topics[0])
}

func TestStartRunDropsCorruptClientFile(t *testing.T) {
	dir := t.TempDir()
	good := `{
		"id": "alice",
		"selection": [{"inputs": [[1]], "targets": [1]}],
		"test": [{"inputs": [[2]], "targets": [2]}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01-good.json"), []byte(good), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02-bad.json"), []byte(`{not json`), 0o644))

	bundle := &registry.Bundle{
		Name: "identity",
		Candidates: []evaluation.Candidate{
			{
				Name:    "identity",
				Model:   registry.LinearModel{},
				Weights: registry.LinearWeights{Coeffs: []float64{1}},
			},
		},
	}
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{bundle: bundle},
		dataset.NewDirResolver(),
		nil, "hypcluster", 0, discardLogger(),
	)

	run, err := svc.CreateRun(t.Context(), evaluator.Run{
		ModelRef:   "./bundles/test",
		DatasetRef: dir,
	})
	require.NoError(t, err)

	run, err = svc.StartRun(t.Context(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, evaluator.Completed, run.State)
	assert.Equal(t, 2, run.ClientsTotal)
	assert.Equal(t, 1, run.ClientsDropped)
	require.NotNil(t, run.Report)
	assert.Equal(t, 1, run.Report.MetricSamples)
	assert.InDelta(t, 0.0, run.Report.Best.Loss, 1e-9)
}

func TestStartRunNotStartable(t *testing.T) {
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{bundle: biasBundle(0)},
		stubResolver{clients: []evaluation.ClientData{biasClient("alice", 0, 1)}},
		nil, "hypcluster", 0, discardLogger(),
	)

	run, err := svc.CreateRun(t.Context(), evaluator.Run{
		ModelRef:   "./bundles/test",
		DatasetRef: "./datasets/test",
	})
	require.NoError(t, err)

	_, err = svc.StartRun(t.Context(), run.ID)
	require.NoError(t, err)

	_, err = svc.StartRun(t.Context(), run.ID)
	assert.ErrorIs(t, err, evaluator.ErrRunNotStartable)
}

func TestStartRunBundleFailure(t *testing.T) {
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{err: errors.New("bundle not found")},
		stubResolver{}, nil, "hypcluster", 0, discardLogger(),
	)

	run, err := svc.CreateRun(t.Context(), evaluator.Run{
		ModelRef:   "./bundles/missing",
		DatasetRef: "./datasets/test",
	})
	require.NoError(t, err)

	_, err = svc.StartRun(t.Context(), run.ID)
	require.Error(t, err)

	got, err := svc.GetRun(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, evaluator.Failed, got.State)
	assert.NotEmpty(t, got.Error)
	assert.Nil(t, got.Report)
}

func TestGetReportNotReady(t *testing.T) {
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{}, stubResolver{}, nil, "hypcluster", 0, discardLogger(),
	)

	run, err := svc.CreateRun(t.Context(), evaluator.Run{
		ModelRef:   "./bundles/test",
		DatasetRef: "./datasets/test",
	})
	require.NoError(t, err)

	_, err = svc.GetReport(t.Context(), run.ID)
	assert.ErrorIs(t, err, evaluator.ErrReportNotReady)
}

func TestDeleteRun(t *testing.T) {
	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		stubRegistry{}, stubResolver{}, nil, "hypcluster", 0, discardLogger(),
	)

	run, err := svc.CreateRun(t.Context(), evaluator.Run{
		ModelRef:   "./bundles/test",
		DatasetRef: "./datasets/test",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRun(t.Context(), run.ID))

	_, err = svc.GetRun(t.Context(), run.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}
