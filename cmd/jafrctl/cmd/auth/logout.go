package auth

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/internal/app"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Load(configDir)
		if err != nil {
			return err
		}
		if err := a.Session.Logout(); err != nil {
			return err
		}
		pterm.Success.Println("Logged out")
		return nil
	},
}
