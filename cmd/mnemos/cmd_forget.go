package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

func forgetCmd() *cobra.Command {
	var (
		category string
		reset    string
	)

	cmd := &cobra.Command{
		Use:   "forget [user_id]",
		Short: "Delete a user's memories, or reset a whole collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			svc, st, err := newService(logger)
			if err != nil {
				return fmt.Errorf("forget: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if reset != "" {
				cat := models.MemoryCategory(reset)
				if !cat.IsValid() {
					return fmt.Errorf("forget: invalid --reset %q: must be episodic or semantic", reset)
				}
				if err := svc.ResetCollection(ctx, cat); err != nil {
					return fmt.Errorf("forget: resetting collection: %w", err)
				}
				fmt.Printf("Reset collection %s\n", cat)
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("forget: user_id argument or --reset is required")
			}
			userID := args[0]

			cat := models.MemoryCategory(category)
			if category != "" && !cat.IsValid() {
				return fmt.Errorf("forget: invalid --category %q: must be episodic or semantic", category)
			}

			if err := svc.DeleteUserMemories(ctx, userID, cat); err != nil {
				return fmt.Errorf("forget: deleting memories: %w", err)
			}

			if category != "" {
				fmt.Printf("Deleted %s memories for user %s\n", category, userID)
			} else {
				fmt.Printf("Deleted all memories for user %s\n", userID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "limit deletion to one collection (episodic|semantic)")
	cmd.Flags().StringVar(&reset, "reset", "", "drop and recreate a whole collection instead")
	return cmd
}
