package dataset

import (
	"context"

	"github.com/rodneyosodo/hypcluster/evaluation"
)

// Batch is the on-disk batch format: a slice of feature vectors and one
// regression target per vector.
type Batch struct {
	Inputs  [][]float64 `json:"inputs"`
	Targets []float64   `json:"targets"`
}

// Provider opens an iterator over the clients of one dataset. Clients are
// mutually independent; iteration order carries no meaning.
type Provider interface {
	Clients(ctx context.Context) (Iterator, error)
}

// Iterator yields one ClientData per client and io.EOF when exhausted.
type Iterator interface {
	Next(ctx context.Context) (evaluation.ClientData, error)
}

// Resolver turns a dataset reference into a Provider.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (Provider, error)
}
