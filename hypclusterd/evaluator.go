package hypclusterd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/rodneyosodo/hypcluster"
	"github.com/rodneyosodo/hypcluster/evaluator"
	"github.com/rodneyosodo/hypcluster/evaluator/api"
	"github.com/rodneyosodo/hypcluster/evaluator/middleware"
	"github.com/rodneyosodo/hypcluster/pkg/dataset"
	"github.com/rodneyosodo/hypcluster/pkg/mqtt"
	"github.com/rodneyosodo/hypcluster/pkg/registry"
	"github.com/rodneyosodo/hypcluster/pkg/storage"
)

const svcName = "evaluator"

type Config struct {
	LogLevel     string
	InstanceID   string
	MQTTAddress  string
	MQTTQoS      uint8
	MQTTTimeout  time.Duration
	MQTTUsername string
	MQTTPassword string
	BaseTopic    string
	Workers      int
	OCI          registry.OCIConfig
	Server       server.Config
	OTELURL      url.URL
	TraceRatio   float64
}

func (c *Config) setDefaults() {
	if c.InstanceID == "" {
		c.InstanceID = uuid.NewString()
	}
}

func StartEvaluator(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	cfg.setDefaults()

	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
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
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				slog.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		ps, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.MQTTUsername, cfg.MQTTPassword, cfg.MQTTTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
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
		registry.New(cfg.OCI),
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

	hs := httpserver.NewServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}

	return nil
}

const defConfigPath = "config.toml"

var evaluatorCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start evaluator",
		Long:  `Start evaluator. Reads config.toml from the working directory when present.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := Config{
				LogLevel:    "info",
				BaseTopic:   "hypcluster",
				MQTTQoS:     2,
				MQTTTimeout: 30 * time.Second,
				Server: server.Config{
					Port: "7070",
				},
			}

			if _, err := os.Stat(defConfigPath); err == nil {
				fileCfg, err := hypcluster.LoadConfig(defConfigPath)
				if err != nil {
					cmd.PrintErrf("failed to load config: %s", err.Error())

					return
				}
				if fileCfg.Evaluator.BaseTopic != "" {
					cfg.BaseTopic = fileCfg.Evaluator.BaseTopic
				}
				cfg.Workers = fileCfg.Evaluator.Workers
				if fileCfg.MQTT.Address != "" {
					cfg.MQTTAddress = fileCfg.MQTT.Address
					cfg.MQTTUsername = fileCfg.MQTT.Username
					cfg.MQTTPassword = fileCfg.MQTT.Password
					cfg.MQTTQoS = fileCfg.MQTT.QoS
				}
				cfg.OCI = registry.OCIConfig{
					RegistryURL:  fileCfg.OCI.RegistryURL,
					Authenticate: fileCfg.OCI.Authenticate,
					Token:        fileCfg.OCI.Token,
					Username:     fileCfg.OCI.Username,
					Password:     fileCfg.OCI.Password,
				}
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartEvaluator(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start evaluator: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewEvaluatorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "evaluator [start]",
		Short: "Evaluator management",
		Long:  `Start the HypCluster evaluator daemon.`,
	}

	for i := range evaluatorCmd {
		cmd.AddCommand(&evaluatorCmd[i])
	}

	return &cmd
}
