package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/goalreminder/goal-reminder/internal/bootstrap"
)

func newSweepCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseInstant(at)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.Reminder.SweepTimeout)
				defer cancel()

				result, err := app.Scheduler.Sweep(ctx, now)
				if err != nil {
					return fmt.Errorf("sweep failed: %w", err)
				}

				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s\n", out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "evaluate the sweep at this RFC3339 instant instead of now")
	return cmd
}

func parseInstant(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at must be RFC3339, e.g. 2025-01-06T13:00:00Z: %w", err)
	}
	return t, nil
}
