package auth

import (
	"github.com/spf13/cobra"
)

var configDir string

// AuthCmd is the parent command for auth operations.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Commands for logging in, logging out, and inspecting the session.`,
}

// SetConfigDir sets the environment directory for all auth commands.
func SetConfigDir(dir string) {
	configDir = dir
}

func init() {
	AuthCmd.AddCommand(loginCmd)
	AuthCmd.AddCommand(logoutCmd)
	AuthCmd.AddCommand(statusCmd)
}
