package env

import (
	"github.com/spf13/cobra"
)

var configDir string

// EnvCmd is the parent command for runtime-environment operations.
var EnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect the resolved runtime environment",
	Long: `Commands for viewing the layered runtime configuration and managing
the local developer override.`,
}

// SetConfigDir sets the environment directory for all env commands.
func SetConfigDir(dir string) {
	configDir = dir
}

func init() {
	EnvCmd.AddCommand(showCmd)
	EnvCmd.AddCommand(setOverrideCmd)
	EnvCmd.AddCommand(clearOverrideCmd)
}
