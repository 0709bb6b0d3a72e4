package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/recommender/internal/usecase/evaluation"
)

func newPredictCmd(flags *rootFlags) *cobra.Command {
	var (
		output      string
		k           int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "predict <queries.csv>",
		Short: "Write Query,Assessment_url predictions for a CSV with a query column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("open queries: %w", err)
			}
			defer func() { _ = in.Close() }()

			queries, err := evaluation.ReadQueries(in)
			if err != nil {
				return fmt.Errorf("read queries: %w", err)
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

			preds, err := evaluation.New(p.recommend, k, concurrency).Predict(cmd.Context(), queries)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(filepath.Clean(output))
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := evaluation.WritePredictions(w, preds); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d predictions for %d queries\n", len(preds), len(queries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output CSV path, - for stdout")
	cmd.Flags().IntVar(&k, "k", evaluation.DefaultK, "recommendations per query")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "queries processed in parallel")
	return cmd
}
