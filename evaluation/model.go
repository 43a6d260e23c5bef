package evaluation

import (
	"context"
	"io"
)

// Batch is an opaque unit of client data consumable by exactly one model
// invocation. Concrete model implementations type-assert it.
type Batch any

// Weights is an opaque, copyable value holding one candidate's parameters.
type Weights any

// BatchResult is the contribution of a single batch to a model's metrics.
type BatchResult struct {
	ErrorSum    float64
	NumExamples int64
}

// Model is the only capability consumed from a candidate: given weights and
// a batch, produce an error sum and an example count.
type Model interface {
	Evaluate(ctx context.Context, weights Weights, batch Batch) (BatchResult, error)
}

// Candidate pairs a model with the weights it is evaluated under. The
// candidate list is ordered and fixed for a whole evaluation run.
type Candidate struct {
	Name    string
	Model   Model
	Weights Weights
}

// BatchStream is a single-pass, finite, ordered sequence of batches.
// Next returns io.EOF after the last batch.
type BatchStream interface {
	Next(ctx context.Context) (Batch, error)
}

// BatchSource opens a fresh single-pass stream over the same underlying
// sequence. Each candidate's accumulation pass opens its own stream.
type BatchSource interface {
	Batches(ctx context.Context) (BatchStream, error)
}

// ClientData exposes exactly the two named partitions of one client's data.
// The selection partition decides which candidate fits the client; the test
// partition measures performance and plays no role in the decision.
type ClientData struct {
	ID        string
	Selection BatchSource
	Test      BatchSource
}

type sliceSource struct {
	batches []Batch
}

type sliceStream struct {
	batches []Batch
	pos     int
}

// NewSliceSource wraps an in-memory batch slice as a BatchSource.
func NewSliceSource(batches ...Batch) BatchSource {
	return &sliceSource{batches: batches}
}

func (s *sliceSource) Batches(_ context.Context) (BatchStream, error) {
	return &sliceStream{batches: s.batches}, nil
}

func (s *sliceStream) Next(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.batches) {
		return nil, io.EOF
	}
	b := s.batches[s.pos]
	s.pos++

	return b, nil
}
