package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/weedrice/whiteboard-cli/internal/adapters/gateway"
)

func newMeCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter("/me", true)

			user, err := app.auth.FetchUser(cmd.Context(), gateway.Options{})
			if err != nil {
				return err
			}

			if asJSON {
				encoded, err := json.MarshalIndent(user, "", "  ")
				if err != nil {
					return fmt.Errorf("encode user: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s\n", user.DisplayName, user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
