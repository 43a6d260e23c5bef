package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/rodneyosodo/hypcluster/evaluation"
	"github.com/rodneyosodo/hypcluster/evaluator"
)

const CTJSON string = "application/json"

type SDK interface {
	// CreateRun registers a pending evaluation run.
	//
	// example:
	//  run := evaluator.Run{
	//    ModelRef:   "./bundles/emnist",
	//    DatasetRef: "./datasets/emnist",
	//  }
	//  run, _ := sdk.CreateRun(run)
	//  fmt.Println(run)
	CreateRun(run evaluator.Run) (evaluator.Run, error)

	// GetRun gets a run by id.
	//
	// example:
	//  run, _ := sdk.GetRun("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(run)
	GetRun(id string) (evaluator.Run, error)

	// ListRuns lists runs.
	//
	// example:
	//  runPage, _ := sdk.ListRuns(0, 10)
	//  fmt.Println(runPage)
	ListRuns(offset, limit uint64) (evaluator.RunPage, error)

	// StartRun executes a pending run and returns its final state.
	//
	// example:
	//  run, _ := sdk.StartRun("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(run)
	StartRun(id string) (evaluator.Run, error)

	// DeleteRun deletes a run.
	//
	// example:
	//  _ = sdk.DeleteRun("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	DeleteRun(id string) error

	// GetReport gets the aggregate report of a completed run.
	//
	// example:
	//  report, _ := sdk.GetReport("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(report)
	GetReport(id string) (evaluation.Report, error)
}

type hypSDK struct {
	evaluatorURL string
	client       *http.Client
}

type Config struct {
	EvaluatorURL    string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &hypSDK{
		evaluatorURL: cfg.EvaluatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *hypSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
