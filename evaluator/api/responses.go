package api

import (
	"net/http"

	"github.com/absmach/supermq"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/evaluator"
)

var (
	_ supermq.Response = (*runResponse)(nil)
	_ supermq.Response = (*listRunsResponse)(nil)
	_ supermq.Response = (*reportResponse)(nil)
)

type runResponse struct {
	evaluator.Run
	created bool
	deleted bool
}

func (r runResponse) Code() int {
	if r.created {
		return http.StatusCreated
	}
	if r.deleted {
		return http.StatusNoContent
	}

	return http.StatusOK
}

func (r runResponse) Headers() map[string]string {
	if r.created {
		return map[string]string{
			"Location": "/runs/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r runResponse) Empty() bool {
	return r.deleted
}

type listRunsResponse struct {
	evaluator.RunPage
}

func (l listRunsResponse) Code() int {
	return http.StatusOK
}

func (l listRunsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRunsResponse) Empty() bool {
	return false
}

type reportResponse struct {
	evaluation.Report
}

func (r reportResponse) Code() int {
	return http.StatusOK
}

func (r reportResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r reportResponse) Empty() bool {
	return false
}
