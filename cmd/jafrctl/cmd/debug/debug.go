package debug

import (
	"github.com/spf13/cobra"
)

var configDir string

// DebugCmd is the parent command for diagnostics.
var DebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Diagnostics for the request pipeline",
}

// SetConfigDir sets the environment directory for all debug commands.
func SetConfigDir(dir string) {
	configDir = dir
}

func init() {
	DebugCmd.AddCommand(requestsCmd)
}
