package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/goalreminder/goal-reminder/internal/bootstrap"
)

func newSimulateCmd() *cobra.Command {
	var from, body string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Feed one inbound text through onboarding and print the reply",
		Example: `  goalctl simulate --from +16502530000 --body START
  goalctl simulate --from +16502530000 --body "Chicago"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return errors.New("--from is required")
			}

			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				reply := app.Onboarding.HandleMessage(cmd.Context(), from, body)
				printf(cmd.OutOrStdout(), "%s\n", reply)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "sender phone number")
	cmd.Flags().StringVar(&body, "body", "", "message text")
	return cmd
}
