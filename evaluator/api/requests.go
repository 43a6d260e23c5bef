package api

import (
	apiutil "github.com/absmach/supermq/api/http/util"

	"github.com/rodneyosodo/hypcluster/evaluator"
)

type runReq struct {
	evaluator.Run `json:",inline"`
}

func (r *runReq) validate() error {
	if r.ModelRef == "" {
		return apiutil.ErrMissingID
	}
	if r.DatasetRef == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	return nil
}
