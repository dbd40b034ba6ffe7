package cli

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/pipeline"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Retrieve the chunks most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")

		storage, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		stored, err := storage.ProviderVersion(ctx)
		if err != nil {
			return err
		}
		if stored != "" && stored != cfg.ProviderVersion() {
			return fmt.Errorf("index was built with provider %s, configured is %s", stored, cfg.ProviderVersion())
		}

		aiClient, err := newAIClient(cfg)
		if err != nil {
			return err
		}
		embedding, err := pipeline.EmbedderStack(cfg, aiClient).GenerateEmbedding(ctx, []byte(query))
		if err != nil {
			return err
		}

		filter := store.Filter{
			SourceType: corpus.SourceType(viper.GetString("source-type")),
			DocumentID: viper.GetString("document"),
		}
		if year := viper.GetInt("year"); year != 0 {
			filter.Year = &year
		}

		results, err := storage.Search(ctx, embedding, viper.GetInt("limit"), filter)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no matches")
			return nil
		}

		for i, r := range results {
			fmt.Printf("%2d. %.4f  %s  (%s, %q)\n", i+1, r.Score, r.Chunk.ID, r.Chunk.Meta.SourceType, r.Chunk.Meta.Title)
			fmt.Printf("    %s\n", firstLine(r.Chunk.Text, 160))
		}
		return nil
	},
}

// firstLine flattens text to one line of at most max runes.
func firstLine(text string, max int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= max {
		return flat
	}
	return string(runes[:max]) + "..."
}

func init() {
	searchCmd.Flags().Int("limit", 10, "maximum number of results")
	searchCmd.Flags().String("source-type", "", "restrict to paper or transcript chunks")
	searchCmd.Flags().String("document", "", "restrict to one document id")
	searchCmd.Flags().Int("year", 0, "restrict to a publication year")
	_ = viper.BindPFlag("limit", searchCmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("source-type", searchCmd.Flags().Lookup("source-type"))
	_ = viper.BindPFlag("document", searchCmd.Flags().Lookup("document"))
	_ = viper.BindPFlag("year", searchCmd.Flags().Lookup("year"))

	rootCmd.AddCommand(searchCmd)
}
