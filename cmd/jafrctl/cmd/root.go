package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/cmd/auth"
	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/cmd/debug"
	envcmd "github.com/Janine65/jafr-ng-core/cmd/jafrctl/cmd/env"
	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/cmd/role"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "jafrctl",
	Short: "jafr developer CLI",
	Long: `jafrctl is the developer companion for applications built on jafr-ng-core.
It exercises the same session, configuration, and role plumbing the
application shell uses: log in against the configured identity provider,
inspect the resolved runtime environment, and check role mappings.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dir := os.Getenv("JAFR_CONFIG_DIR"); dir != "" && !cmd.Flags().Changed("config-dir") {
			configDir = dir
		}

		// Propagate flags to subcommands.
		auth.SetConfigDir(configDir)
		envcmd.SetConfigDir(configDir)
		role.SetConfigDir(configDir)
		debug.SetConfigDir(configDir)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing environment.json (also set via JAFR_CONFIG_DIR)")
	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(envcmd.EnvCmd)
	rootCmd.AddCommand(role.RoleCmd)
	rootCmd.AddCommand(debug.DebugCmd)
}
