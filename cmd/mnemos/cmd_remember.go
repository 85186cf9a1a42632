package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaehoon-lim/mnemos/internal/classifier"
	"github.com/jaehoon-lim/mnemos/internal/models"
	"github.com/jaehoon-lim/mnemos/internal/service"
)

func rememberCmd() *cobra.Command {
	var (
		userID     string
		category   string
		source     string
		timestamp  string
		importance float64
		factType   string
		speaker    string
	)

	cmd := &cobra.Command{
		Use:   "remember [text]",
		Short: "Classify, embed, and store a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			cat := models.MemoryCategory(category)
			if category != "" && !cat.IsValid() {
				return fmt.Errorf("remember: invalid --category %q: must be episodic or semantic", category)
			}

			var ts time.Time
			if timestamp != "" {
				var err error
				ts, err = time.Parse(time.RFC3339, timestamp)
				if err != nil {
					return fmt.Errorf("remember: invalid --timestamp %q: %w", timestamp, err)
				}
			}

			svc, st, err := newService(logger)
			if err != nil {
				return fmt.Errorf("remember: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.EnsureCollections(ctx); err != nil {
				return fmt.Errorf("remember: ensuring collections: %w", err)
			}

			resp, err := svc.Remember(ctx, service.RememberRequest{
				Text:       args[0],
				UserID:     userID,
				Category:   cat,
				Timestamp:  ts,
				Source:     source,
				Importance: importance,
				Hints: classifier.Hints{
					FactType: factType,
					Speaker:  speaker,
				},
			})
			if err != nil {
				return fmt.Errorf("remember: %w", err)
			}

			fmt.Printf("Stored memory %s [%s] importance=%.2f\n", resp.ID, resp.Category, resp.Importance)
			if resp.Classification != nil {
				fmt.Printf("Classified with confidence %.2f", resp.Classification.Confidence)
				if resp.Classification.NeedsReview {
					fmt.Print(" (needs review)")
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user the memory belongs to (required)")
	cmd.Flags().StringVar(&category, "category", "", "force a collection (episodic|semantic); empty = classify")
	cmd.Flags().StringVar(&source, "source", "cli", "where the memory came from")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "event time, RFC3339 (empty = no event time)")
	cmd.Flags().Float64Var(&importance, "importance", 0, "importance override in (0,1]; 0 = heuristic")
	cmd.Flags().StringVar(&factType, "fact-type", "", "hint: explicit fact type (forces semantic)")
	cmd.Flags().StringVar(&speaker, "speaker", "", "hint: speaker name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
