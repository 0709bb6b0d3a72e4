package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/index"
	"github.com/kailas-cloud/recommender/internal/repository/artifact"
	"github.com/kailas-cloud/recommender/internal/repository/catalog"
	"github.com/kailas-cloud/recommender/internal/usecase/indexing"
)

type buildFlags struct {
	output      string
	metric      string
	compression string
	concurrency int
}

func newBuildIndexCmd(flags *rootFlags) *cobra.Command {
	bf := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build-index <catalog.csv>",
		Short: "Clean the catalog, embed every record and write the index artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()
			logger := a.logger

			records, stats, err := catalog.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}
			logger.Info("Catalog cleaned",
				zap.Int("rows", stats.Rows),
				zap.Int("kept", stats.Kept),
				zap.Int("duplicates", stats.Duplicates),
				zap.Int("skipped", stats.Skipped),
			)
			if stats.Incomplete() {
				logger.Warn("Catalog has fewer records than expected",
					zap.Int("kept", stats.Kept), zap.Int("expected_min", catalog.ExpectedMinRecords))
			}

			metric, err := index.ParseMetric(bf.metric)
			if err != nil {
				return err
			}
			vectorsFile, err := vectorsFileFor(bf.compression)
			if err != nil {
				return err
			}

			output := bf.output
			if output == "" {
				output = a.cfg.Index.Artifact
			}
			dst, err := a.artifactSource(output)
			if err != nil {
				return err
			}

			if err := a.openCache(cmd.Context()); err != nil {
				return err
			}
			embedder, err := a.embedder(cmd.Context(), taskDocument, "")
			if err != nil {
				return err
			}

			svc := indexing.New(embedder, indexing.Config{
				Model:       a.cfg.Embedding.Model,
				Metric:      metric,
				Concurrency: bf.concurrency,
				BatchSize:   a.cfg.Embedding.MaxBatchSize,
				VectorsFile: vectorsFile,
			}, logger)

			built, err := svc.BuildAndWrite(cmd.Context(), records, dst)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Index built with %d assessments (dimension %d) at %s\n",
				built.Manifest.Count, built.Manifest.Dimension, dst)
			return nil
		},
	}

	cmd.Flags().StringVarP(&bf.output, "output", "o", "", "artifact directory or s3://bucket/prefix (default index.artifact)")
	cmd.Flags().StringVar(&bf.metric, "metric", "l2", "distance metric: l2, cosine, inner_product")
	cmd.Flags().StringVar(&bf.compression, "compression", "zstd", "vectors compression: zstd, lz4, none")
	cmd.Flags().IntVar(&bf.concurrency, "concurrency", 4, "embedding batches in flight")
	return cmd
}

func vectorsFileFor(compression string) (string, error) {
	switch compression {
	case "zstd", "":
		return artifact.VectorsFile, nil
	case "lz4":
		return "vectors.f32.lz4", nil
	case "none":
		return "vectors.f32", nil
	default:
		return "", fmt.Errorf("unknown compression %q", compression)
	}
}
