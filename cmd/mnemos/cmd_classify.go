package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jaehoon-lim/mnemos/internal/classifier"
)

func classifyCmd() *cobra.Command {
	var (
		factType       string
		conversationID string
		speaker        string
	)

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify a text as episodic or semantic without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			text := args[0]

			cls := classifier.New(logger)
			refiner := classifier.NewRefiner(logger)

			hints := classifier.Hints{
				FactType:       factType,
				ConversationID: conversationID,
				Speaker:        speaker,
			}
			result := refiner.Refine(text, hints, cls.Classify(text, hints))

			fmt.Printf("Category:   %s\n", result.Category)
			fmt.Printf("Confidence: %.2f\n", result.Confidence)
			fmt.Printf("Scores:     episodic=%.0f semantic=%.0f\n", result.EpisodicScore, result.SemanticScore)
			if len(result.Features) > 0 {
				var parts []string
				for name, count := range result.Features {
					parts = append(parts, fmt.Sprintf("%s=%d", name, count))
				}
				fmt.Printf("Features:   %s\n", strings.Join(parts, " "))
			}
			if len(result.RulesApplied) > 0 {
				fmt.Printf("Rules:      %s\n", strings.Join(result.RulesApplied, ", "))
			}
			if result.NeedsReview {
				fmt.Println("Needs review: confidence below threshold")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&factType, "fact-type", "", "hint: explicit fact type (forces semantic)")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "hint: conversation ID")
	cmd.Flags().StringVar(&speaker, "speaker", "", "hint: speaker name")
	return cmd
}
