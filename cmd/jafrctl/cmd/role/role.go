package role

import (
	"github.com/spf13/cobra"
)

var configDir string

// RoleCmd is the parent command for role-resolver operations.
var RoleCmd = &cobra.Command{
	Use:   "roles",
	Short: "Inspect the role resolver",
	Long:  `Commands for listing role definitions and checking provider-role mappings.`,
}

// SetConfigDir sets the environment directory for all role commands.
func SetConfigDir(dir string) {
	configDir = dir
}

func init() {
	RoleCmd.AddCommand(listCmd)
	RoleCmd.AddCommand(checkCmd)
}
