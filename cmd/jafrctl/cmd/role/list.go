package role

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/internal/app"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the role definitions the resolver holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Load(configDir)
		if err != nil {
			return err
		}

		if err := a.Resolver.EnsureLoaded(cmd.Context()); err != nil {
			return err
		}
		if a.Resolver.UsingFallback() {
			pterm.Warning.Println("Role source unavailable; showing the built-in fallback role")
		}

		rows := pterm.TableData{{"NAME", "DISPLAY NAME", "PROVIDER ROLES"}}
		for _, role := range a.Resolver.Roles() {
			rows = append(rows, []string{
				role.Name,
				role.DisplayName,
				strings.Join(role.ProviderRoles, ", "),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}
