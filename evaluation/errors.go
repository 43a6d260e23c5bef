package evaluation

import "errors"

var (
	// ErrNoCandidates indicates an empty candidate model list.
	ErrNoCandidates = errors.New("no candidate models provided")

	// ErrNoResults indicates that no client results were available for
	// aggregation.
	ErrNoResults = errors.New("no client results to aggregate")

	// ErrInvalidClientData indicates client data that cannot support a
	// selection decision, such as an empty selection partition.
	ErrInvalidClientData = errors.New("invalid client data")

	// ErrResultShape indicates a client result whose metric slices do not
	// match the candidate count, or whose chosen index is out of range.
	ErrResultShape = errors.New("client result does not match candidate count")
)
