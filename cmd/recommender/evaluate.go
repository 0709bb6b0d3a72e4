package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/recommender/internal/usecase/evaluation"
)

type evalFlags struct {
	k           int
	concurrency int
	quiet       bool
}

func newEvaluateCmd(flags *rootFlags) *cobra.Command {
	ef := &evalFlags{}

	cmd := &cobra.Command{
		Use:   "evaluate <labelled.csv>",
		Short: "Compute Recall@K over a Query,Assessment_url dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("open dataset: %w", err)
			}
			defer func() { _ = f.Close() }()

			queries, err := evaluation.ReadLabelled(f)
			if err != nil {
				return fmt.Errorf("read dataset: %w", err)
			}

			a, err := newApplication(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.recommender(cmd.Context())
			if err != nil {
				return err
			}

			report, err := evaluation.New(p.recommend, ef.k, ef.concurrency).Evaluate(cmd.Context(), queries)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !ef.quiet {
				fmt.Fprintf(out, "\nEvaluating Recall@%d:\n\n", report.K)
				for _, r := range report.Results {
					fmt.Fprintf(out, "Query: %s\nRecall@%d: %.2f\n\n", r.Query, report.K, r.Recall)
				}
			}
			fmt.Fprintf(out, "Mean Recall@%d: %.3f\n", report.K, report.MeanRecall)
			return nil
		},
	}

	cmd.Flags().IntVar(&ef.k, "k", evaluation.DefaultK, "recall cutoff")
	cmd.Flags().IntVar(&ef.concurrency, "concurrency", 4, "queries evaluated in parallel")
	cmd.Flags().BoolVarP(&ef.quiet, "quiet", "q", false, "print only the mean")
	return cmd
}
