package main

import (
	"github.com/spf13/cobra"
)

const app = "recommender"

type rootFlags struct {
	env      string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           app,
		Short:         "recommender suggests assessments for a job description or hiring query",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&flags.env, "env", "",
		"config environment, selects config/<env>.yaml (default is $ENV or local)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"log level override: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(flags),
		newRecommendCmd(flags),
		newEvaluateCmd(flags),
		newPredictCmd(flags),
		newBuildIndexCmd(flags),
		newVersionCmd(),
	)
	return root
}
