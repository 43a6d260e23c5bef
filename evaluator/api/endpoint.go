package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/rodneyosodo/hypcluster/evaluator"
	pkgerrors "github.com/rodneyosodo/hypcluster/pkg/errors"
)

func createRunEndpoint(svc evaluator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(runReq)
		if !ok {
			return runResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		run, err := svc.CreateRun(ctx, req.Run)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{
			Run:     run,
			created: true,
		}, nil
	}
}

func getRunEndpoint(svc evaluator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		run, err := svc.GetRun(ctx, req.id)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{
			Run: run,
		}, nil
	}
}

func listRunsEndpoint(svc evaluator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listRunsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRunsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		runs, err := svc.ListRuns(ctx, req.offset, req.limit)
		if err != nil {
			return listRunsResponse{}, err
		}

		return listRunsResponse{
			RunPage: runs,
		}, nil
	}
}

func startRunEndpoint(svc evaluator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		run, err := svc.StartRun(ctx, req.id)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{
			Run: run,
		}, nil
	}
}

func deleteRunEndpoint(svc evaluator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.DeleteRun(ctx, req.id); err != nil {
			return runResponse{}, err
		}

		return runResponse{
			deleted: true,
		}, nil
	}
}

func getReportEndpoint(svc evaluator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return reportResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return reportResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		report, err := svc.GetReport(ctx, req.id)
		if err != nil {
			return reportResponse{}, err
		}

		return reportResponse{
			Report: report,
		}, nil
	}
}
