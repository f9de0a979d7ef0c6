package auth

import (
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Load(configDir)
		if err != nil {
			return err
		}

		state := a.Session.State()
		pterm.DefaultSection.Println("Authentication Status")

		if !state.Authenticated {
			pterm.Warning.Println("Not logged in")
			return nil
		}

		pterm.Info.Printf("Subject: %s\n", state.Subject)
		if state.Email != "" {
			pterm.Info.Printf("Email: %s\n", state.Email)
		}
		pterm.Info.Printf("Token expires: %s\n", state.ExpiresAt.Format(time.RFC1123))
		if len(state.ProviderRoles) > 0 {
			pterm.Info.Printf("Provider roles: %s\n", strings.Join(state.ProviderRoles, ", "))
		}
		return nil
	},
}
