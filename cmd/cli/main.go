package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/rodneyosodo/hypcluster/cli"
	"github.com/rodneyosodo/hypcluster/hypclusterd"
	"github.com/rodneyosodo/hypcluster/pkg/sdk"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hypcluster-cli",
		Short: "HypCluster CLI",
		Long:  `HypCluster CLI is a command line interface for managing evaluation runs.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				EvaluatorURL:    cli.DefEvaluatorURL,
				TLSVerification: cli.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	runsCmd := cli.NewRunsCmd()
	evaluatorCmd := hypclusterd.NewEvaluatorCmd()

	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(evaluatorCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
