package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rodneyosodo/hypcluster/evaluator"
	"github.com/rodneyosodo/hypcluster/pkg/api"
)

func MakeHandler(svc evaluator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Route("/runs", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			createRunEndpoint(svc),
			decodeRunReq,
			api.EncodeResponse,
			opts...,
		), "create-run").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRunsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-runs").ServeHTTP)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getRunEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "get-run").ServeHTTP)
			r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
				deleteRunEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "delete-run").ServeHTTP)
			r.Post("/start", otelhttp.NewHandler(kithttp.NewServer(
				startRunEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "start-run").ServeHTTP)
			r.Get("/report", otelhttp.NewHandler(kithttp.NewServer(
				getReportEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "get-report").ServeHTTP)
		})
	})

	mux.Get("/health", supermq.Health("evaluator", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeRunReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req runReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}
