package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaehoon-lim/mnemos/internal/models"
	"github.com/jaehoon-lim/mnemos/internal/retrieval"
	"github.com/jaehoon-lim/mnemos/internal/service"
)

func searchCmd() *cobra.Command {
	var (
		userID         string
		collections    []string
		limit          uint64
		episodicWeight float64
		semanticWeight float64
		useDecay       bool
		smart          bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories across collections with weights and optional decay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			req := service.SearchRequest{
				Query:    args[0],
				UserID:   userID,
				Limit:    limit,
				UseDecay: useDecay,
			}
			for _, c := range collections {
				cat := models.MemoryCategory(c)
				if !cat.IsValid() {
					return fmt.Errorf("search: invalid --collection %q: must be episodic or semantic", c)
				}
				req.Collections = append(req.Collections, cat)
			}
			if episodicWeight != 1.0 || semanticWeight != 1.0 {
				req.Weights = models.CollectionWeights{
					models.CategoryEpisodic: episodicWeight,
					models.CategorySemantic: semanticWeight,
				}
			}

			svc, st, err := newService(logger)
			if err != nil {
				return fmt.Errorf("search: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			var res *retrieval.Result
			if smart {
				r, classification, err := svc.SmartSearch(ctx, req)
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				fmt.Printf("Query classified as %s (%.2f)\n\n", classification.Category, classification.Confidence)
				res = r
			} else {
				r, err := svc.Search(ctx, req)
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				res = r
			}

			for i := range res.Hits {
				h := &res.Hits[i]
				fmt.Printf("[%d] (%.4f raw %.4f) [%s] %s\n", i+1, h.AdjustedScore, h.Score, h.Collection, truncate(h.Record.Text, 120))
				fmt.Printf("    ID: %s | Source: %s\n", h.Record.ID, h.Record.Source)
			}
			if len(res.Hits) == 0 {
				fmt.Println("No results found.")
			}
			for _, f := range res.Failures {
				fmt.Printf("warning: collection %s failed: %v\n", f.Collection, f.Err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user whose memories to search (required)")
	cmd.Flags().StringSliceVar(&collections, "collection", nil, "collections to search (episodic|semantic); empty = all")
	cmd.Flags().Uint64Var(&limit, "limit", 5, "max results")
	cmd.Flags().Float64Var(&episodicWeight, "episodic-weight", 1.0, "score multiplier for the episodic collection")
	cmd.Flags().Float64Var(&semanticWeight, "semantic-weight", 1.0, "score multiplier for the semantic collection")
	cmd.Flags().BoolVar(&useDecay, "decay", false, "blend time decay into ranking")
	cmd.Flags().BoolVar(&smart, "smart", false, "classify the query and bias weights automatically")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
