package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

func statsCmd() *cobra.Command {
	var (
		userID     string
		collection string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show user memory counts or collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			svc, st, err := newService(logger)
			if err != nil {
				return fmt.Errorf("stats: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if collection != "" {
				cat := models.MemoryCategory(collection)
				if !cat.IsValid() {
					return fmt.Errorf("stats: invalid --collection %q: must be episodic or semantic", collection)
				}
				stats, err := svc.CollectionStats(ctx, cat)
				if err != nil {
					return fmt.Errorf("stats: fetching collection statistics: %w", err)
				}
				fmt.Printf("Collection %s: %d points, dim=%d, metric=%s\n",
					stats.Category, stats.PointCount, stats.VectorDim, stats.DistanceMetric)
				return nil
			}

			if userID == "" {
				return fmt.Errorf("stats: either --user or --collection is required")
			}

			stats, err := svc.UserStats(ctx, userID)
			if err != nil {
				return fmt.Errorf("stats: fetching user statistics: %w", err)
			}

			fmt.Printf("User %s: %d memories\n\n", stats.UserID, stats.TotalMemories)
			for _, c := range models.ValidCategories {
				fmt.Printf("  %-10s %6d  (%.0f%%)\n", c, stats.ByCategory[c], stats.Distribution[c]*100)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "report counts for this user")
	cmd.Flags().StringVar(&collection, "collection", "", "report statistics for one collection instead")
	return cmd
}
