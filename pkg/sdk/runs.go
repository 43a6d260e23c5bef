package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/evaluator"
)

const runsEndpoint = "/runs"

func (sdk *hypSDK) CreateRun(run evaluator.Run) (evaluator.Run, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return evaluator.Run{}, err
	}

	url := sdk.evaluatorURL + runsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return evaluator.Run{}, err
	}

	var r evaluator.Run
	if err := json.Unmarshal(body, &r); err != nil {
		return evaluator.Run{}, err
	}

	return r, nil
}

func (sdk *hypSDK) GetRun(id string) (evaluator.Run, error) {
	url := sdk.evaluatorURL + runsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return evaluator.Run{}, err
	}

	var r evaluator.Run
	if err := json.Unmarshal(body, &r); err != nil {
		return evaluator.Run{}, err
	}

	return r, nil
}

func (sdk *hypSDK) ListRuns(offset, limit uint64) (evaluator.RunPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}
	url := sdk.evaluatorURL + runsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return evaluator.RunPage{}, err
	}

	var p evaluator.RunPage
	if err := json.Unmarshal(body, &p); err != nil {
		return evaluator.RunPage{}, err
	}

	return p, nil
}

func (sdk *hypSDK) StartRun(id string) (evaluator.Run, error) {
	url := sdk.evaluatorURL + runsEndpoint + "/" + id + "/start"

	body, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusOK)
	if err != nil {
		return evaluator.Run{}, err
	}

	var r evaluator.Run
	if err := json.Unmarshal(body, &r); err != nil {
		return evaluator.Run{}, err
	}

	return r, nil
}

func (sdk *hypSDK) DeleteRun(id string) error {
	url := sdk.evaluatorURL + runsEndpoint + "/" + id

	if _, err := sdk.processRequest(http.MethodDelete, url, nil, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}

func (sdk *hypSDK) GetReport(id string) (evaluation.Report, error) {
	url := sdk.evaluatorURL + runsEndpoint + "/" + id + "/report"

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return evaluation.Report{}, err
	}

	var report evaluation.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return evaluation.Report{}, err
	}

	return report, nil
}
