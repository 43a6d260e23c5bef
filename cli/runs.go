package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rodneyosodo/hypcluster/evaluator"
	"github.com/rodneyosodo/hypcluster/pkg/mqtt"
	"github.com/rodneyosodo/hypcluster/pkg/sdk"
)

var (
	DefTLSVerification        = false
	DefEvaluatorURL           = "http://localhost:7070"
	defOffset          uint64 = 0
	defLimit           uint64 = 10

	runName     string
	modelRef    string
	datasetRef  string
	workers     int
	mqttAddress string
	baseTopic   string
)

var hsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	hsdk = s
}

func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [create|view|list|start|report|watch|delete]",
		Short: "Evaluation runs",
		Long:  `Create, view, list, start, delete evaluation runs and fetch or watch their reports.`,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create run",
		Long: `Create an evaluation run.

Examples:
  # Create a run from flags
  hypcluster-cli runs create --models ./bundles/emnist --dataset ./datasets/emnist

  # Create a run interactively
  hypcluster-cli runs create`,
		Run: func(cmd *cobra.Command, _ []string) {
			if modelRef == "" || datasetRef == "" {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().
							Title("Run name (optional)").
							Value(&runName),
						huh.NewInput().
							Title("Model bundle reference").
							Value(&modelRef),
						huh.NewInput().
							Title("Dataset reference").
							Value(&datasetRef),
					),
				)
				if err := form.Run(); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}

			run, err := hsdk.CreateRun(evaluator.Run{
				Name:       runName,
				ModelRef:   modelRef,
				DatasetRef: datasetRef,
				Workers:    workers,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, run)
		},
	}

	createCmd.Flags().StringVar(&runName, "name", "", "Run name")
	createCmd.Flags().StringVar(&modelRef, "models", "", "Model bundle reference (directory or oci:// ref)")
	createCmd.Flags().StringVar(&datasetRef, "dataset", "", "Dataset reference (directory of client files)")
	createCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent client evaluations (0 uses the server default)")

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View run",
		Long:  `View run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			run, err := hsdk.GetRun(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, run)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		Long:  `List runs.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := hsdk.ListRuns(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	startCmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start run",
		Long:  `Start run and wait for its report.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			run, err := hsdk.StartRun(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, run)
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Watch run reports",
		Long:  `Subscribe to a run's report topic and print reports as they arrive. Stops on interrupt.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			pubsub, err := mqtt.NewPubSub(mqttAddress, 2, "hypcluster-cli-"+uuid.NewString(), "", "", 30*time.Second, logger)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			topic := baseTopic + "/runs/" + args[0] + "/report"
			err = pubsub.Subscribe(ctx, topic, func(_ string, msg map[string]any) error {
				logJSONCmd(*cmd, msg)

				return nil
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			<-ctx.Done()
			if err := pubsub.Disconnect(context.Background()); err != nil {
				logErrorCmd(*cmd, err)
			}
		},
	}

	watchCmd.Flags().StringVar(&mqttAddress, "mqtt-address", "tcp://localhost:1883", "MQTT broker address")
	watchCmd.Flags().StringVar(&baseTopic, "topic", "hypcluster", "Base topic reports are published under")

	reportCmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Fetch run report",
		Long:  `Fetch the aggregate report of a completed run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			report, err := hsdk.GetReport(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, report)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete run",
		Long:  `Delete run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := hsdk.DeleteRun(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	cmd.AddCommand(createCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(startCmd)
	cmd.AddCommand(reportCmd)
	cmd.AddCommand(watchCmd)
	cmd.AddCommand(deleteCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}
