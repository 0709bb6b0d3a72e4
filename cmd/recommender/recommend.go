package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/recommender/internal/domain"
)

type recommender interface {
	Recommend(ctx context.Context, query string, topK int) ([]domain.Assessment, error)
}

type recommendFlags struct {
	topK        int
	interactive bool
	json        bool
}

func newRecommendCmd(flags *rootFlags) *cobra.Command {
	rf := &recommendFlags{}

	cmd := &cobra.Command{
		Use:   "recommend [query]",
		Short: "Recommend assessments for a query",
		Args: func(_ *cobra.Command, args []string) error {
			if !rf.interactive && len(args) == 0 {
				return errors.New("a query is required unless --interactive is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.recommender(cmd.Context())
			if err != nil {
				return err
			}

			if rf.interactive {
				return interactive(cmd.Context(), p.recommend, rf, cmd.OutOrStdout())
			}
			return recommendOnce(cmd.Context(), p.recommend, strings.Join(args, " "), rf, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&rf.topK, "top-k", "k", 0, "number of recommendations (default from config)")
	cmd.Flags().BoolVarP(&rf.interactive, "interactive", "i", false, "prompt for queries until interrupted")
	cmd.Flags().BoolVar(&rf.json, "json", false, "print results as JSON")
	return cmd
}

func recommendOnce(
	ctx context.Context, rec recommender, query string, rf *recommendFlags, out io.Writer,
) error {
	records, err := rec.Recommend(ctx, query, rf.topK)
	if errors.Is(err, domain.ErrNoResults) {
		fmt.Fprintln(out, "No matching assessments found.")
		return nil
	}
	if err != nil {
		return err
	}
	if rf.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records) //nolint:wrapcheck // writer error
	}
	printRecords(out, records)
	return nil
}

func printRecords(out io.Writer, records []domain.Assessment) {
	for i := range records {
		r := &records[i]
		fmt.Fprintf(out, "%2d. %s | %s\n    %s\n", i+1, r.Name, strings.Join(r.TestTypes, ", "), r.URL)
	}
}

func interactive(ctx context.Context, rec recommender, rf *recommendFlags, out io.Writer) error {
	prompt := promptui.Prompt{
		Label: "Query",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("query must not be empty")
			}
			return nil
		},
	}

	for {
		query, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		if err := recommendOnce(ctx, rec, query, rf, out); err != nil {
			if !errors.Is(err, domain.ErrInvalidQuery) && !errors.Is(err, domain.ErrRateLimited) {
				return err
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}
