package cli

import (
	"fmt"

	"github.com/OFFIS-RIT/atlas/backend/pkg/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed and store every document from the source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storage, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		aiClient, err := newAIClient(cfg)
		if err != nil {
			return err
		}

		indexer, err := pipeline.NewIndexer(cfg, newSource(ctx, cfg), pipeline.EmbedderStack(cfg, aiClient), storage)
		if err != nil {
			return err
		}
		summary, err := indexer.Run(ctx, viper.GetBool("force"))
		if err != nil {
			return err
		}

		fmt.Printf("indexed %d documents (%d chunks), %d empty, %d failed, %d skipped\n",
			summary.Documents, summary.Chunks, summary.Empty, summary.Failed, summary.Skipped)
		return nil
	},
}

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Rebuild the topical clusters over the stored vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storage, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		aiClient, err := newAIClient(cfg)
		if err != nil {
			return err
		}

		runner := pipeline.NewTaxonomyRunner(cfg, newSource(ctx, cfg), aiClient, storage)
		summary, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("clustered %d documents into %d components (%d label fallbacks)\n",
			summary.Documents, summary.ChosenK, summary.LabelFallbacks)
		for _, c := range summary.Candidates {
			fmt.Printf("  k=%-3d bic=%.1f silhouette=%.3f\n", c.K, c.BIC, c.Silhouette)
		}
		return nil
	},
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Ingest claims and fold near-duplicates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storage, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		aiClient, err := newAIClient(cfg)
		if err != nil {
			return err
		}

		deduper := pipeline.NewDeduper(cfg, newSource(ctx, cfg), pipeline.EmbedderStack(cfg, aiClient), storage)
		summary, err := deduper.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("ingested %d claims (%d invalid), %d active, %d folded\n",
			summary.Ingested, summary.Invalid, summary.Active, summary.Folded)
		return nil
	},
}

func init() {
	indexCmd.Flags().Bool("force", false, "rebuild even if the stored provider version differs")
	_ = viper.BindPFlag("force", indexCmd.Flags().Lookup("force"))

	rootCmd.AddCommand(indexCmd, taxonomyCmd, dedupeCmd)
}
