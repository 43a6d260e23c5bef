package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/rodneyosodo/hypcluster/evaluator"
	"github.com/rodneyosodo/hypcluster/evaluator/api"
	"github.com/rodneyosodo/hypcluster/evaluator/middleware"
	"github.com/rodneyosodo/hypcluster/pkg/dataset"
	"github.com/rodneyosodo/hypcluster/pkg/mqtt"
	"github.com/rodneyosodo/hypcluster/pkg/registry"
	"github.com/rodneyosodo/hypcluster/pkg/storage"
)

const (
	svcName       = "evaluator"
	defHTTPPort   = "7070"
	envPrefixHTTP = "EVALUATOR_HTTP_"
	envPrefixOCI  = "EVALUATOR_OCI_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel     string        `env:"EVALUATOR_LOG_LEVEL"     envDefault:"info"`
	InstanceID   string        `env:"EVALUATOR_INSTANCE_ID"`
	MQTTAddress  string        `env:"EVALUATOR_MQTT_ADDRESS"`
	MQTTQoS      uint8         `env:"EVALUATOR_MQTT_QOS"      envDefault:"2"`
	MQTTTimeout  time.Duration `env:"EVALUATOR_MQTT_TIMEOUT"  envDefault:"30s"`
	MQTTUsername string        `env:"EVALUATOR_MQTT_USERNAME"`
	MQTTPassword string        `env:"EVALUATOR_MQTT_PASSWORD"`
	BaseTopic    string        `env:"EVALUATOR_BASE_TOPIC"    envDefault:"hypcluster"`
	Workers      int           `env:"EVALUATOR_WORKERS"       envDefault:"4"`
	OTELURL      url.URL       `env:"EVALUATOR_OTEL_URL"`
	TraceRatio   float64       `env:"EVALUATOR_TRACE_RATIO"   envDefault:"0"`
}

type ociConfig struct {
	RegistryURL  string `env:"REGISTRY_URL"`
	Authenticate bool   `env:"AUTHENTICATE" envDefault:"false"`
	Token        string `env:"TOKEN"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	ociCfg := ociConfig{}
	if err := env.ParseWithOptions(&ociCfg, env.Options{Prefix: envPrefixOCI}); err != nil {
		log.Fatalf("failed to load OCI configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		ps, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.MQTTUsername, cfg.MQTTPassword, cfg.MQTTTimeout, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		pubsub = ps
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				logger.Warn("failed to disconnect mqtt pubsub", slog.Any("error", err))
			}
		}()
	}

	svc := evaluator.NewService(
		storage.NewInMemoryStorage[evaluator.Run](),
		registry.New(registry.OCIConfig{
			RegistryURL:  ociCfg.RegistryURL,
			Authenticate: ociCfg.Authenticate,
			Token:        ociCfg.Token,
			Username:     ociCfg.Username,
			Password:     ociCfg.Password,
		}),
		dataset.NewDirResolver(),
		pubsub,
		cfg.BaseTopic,
		cfg.Workers,
		logger,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
