package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the index currently holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storage, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		stats, err := storage.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("backend:       %s\n", stats.Backend)
		fmt.Printf("provider:      %s\n", orNone(stats.ProviderVersion))
		fmt.Printf("dimensions:    %d\n", stats.Dimension)
		fmt.Printf("documents:     %d\n", stats.Documents)
		fmt.Printf("chunks:        %d\n", stats.Chunks)
		fmt.Printf("claims:        %d (%d active)\n", stats.Claims, stats.ActiveClaims)
		fmt.Printf("clusters:      %d\n", stats.Clusters)
		return nil
	},
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "List the current taxonomy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		storage, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		clusters, err := storage.ListClusters(ctx)
		if err != nil {
			return err
		}
		if len(clusters) == 0 {
			fmt.Println("no taxonomy built yet")
			return nil
		}

		sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
		for _, c := range clusters {
			fmt.Printf("%3d  %-40s papers=%d primary=%d pos=(%.2f, %.2f)\n",
				c.ID, c.Label, c.PaperCount, c.PrimaryCount, c.X, c.Y)
			if c.Description != "" {
				fmt.Printf("     %s\n", c.Description)
			}
		}
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(statsCmd, clustersCmd)
}
