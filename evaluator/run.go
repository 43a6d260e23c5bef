package evaluator

import (
	"time"

	"github.com/rodneyosodo/hypcluster/evaluation"
)

type State uint8

const (
	Pending State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Run is one evaluation of a candidate bundle against a client population.
type Run struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	ModelRef       string             `json:"model_ref"`
	DatasetRef     string             `json:"dataset_ref"`
	Workers        int                `json:"workers,omitempty"`
	State          State              `json:"state"`
	NumModels      int                `json:"num_models,omitempty"`
	ClientsTotal   int                `json:"clients_total,omitempty"`
	ClientsDropped int                `json:"clients_dropped,omitempty"`
	Report         *evaluation.Report `json:"report,omitempty"`
	Error          string             `json:"error,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
}

type RunPage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}
