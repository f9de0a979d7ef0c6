package role

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/internal/app"
)

var checkCmd = &cobra.Command{
	Use:   "check <provider-role>...",
	Short: "Show the internal roles a set of provider roles maps to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Load(configDir)
		if err != nil {
			return err
		}

		if err := a.Resolver.EnsureLoaded(cmd.Context()); err != nil {
			return err
		}

		granted := a.Resolver.MapProviderRolesToInternal(args)
		if len(granted) == 0 {
			pterm.Warning.Printf("No internal roles match %s\n", strings.Join(args, ", "))
			return nil
		}

		pterm.Success.Printf("Internal roles: %s\n", strings.Join(granted, ", "))
		return nil
	},
}
