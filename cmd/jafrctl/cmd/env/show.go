package env

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/internal/app"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved runtime environment",
	Long: `Prints the environment after all layers are applied: built-in defaults,
environment.json, environment.local.json, the stored developer override,
and JAFR_* process environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Load(configDir)
		if err != nil {
			return err
		}

		env := a.Env
		// Never print the client secret.
		env.Identity.ClientSecret = ""

		raw, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("encode environment: %w", err)
		}

		pterm.DefaultSection.Printf("Runtime Environment (%s)\n", env.Stage)
		fmt.Println(string(raw))
		return nil
	},
}
