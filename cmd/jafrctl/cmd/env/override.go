package env

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
	"github.com/Janine65/jafr-ng-core/pkg/storage"
)

var overrideFile string

var setOverrideCmd = &cobra.Command{
	Use:   "set-override [json]",
	Short: "Store a developer override layer",
	Long: `Stores a JSON object that is layered over environment.json on every load.
The object is given inline or via --file. Only the keys present in the
object are overridden.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		switch {
		case overrideFile != "":
			data, err := os.ReadFile(overrideFile)
			if err != nil {
				return fmt.Errorf("read override file: %w", err)
			}
			raw = data
		case len(args) == 1:
			raw = []byte(args[0])
		default:
			return fmt.Errorf("provide the override as an argument or via --file")
		}

		store, err := storage.NewUserFileStore("jafrctl")
		if err != nil {
			return err
		}
		if err := runtimecfg.StoreOverride(store, json.RawMessage(raw)); err != nil {
			return err
		}

		pterm.Success.Println("Override stored; it applies on the next load")
		return nil
	},
}

var clearOverrideCmd = &cobra.Command{
	Use:   "clear-override",
	Short: "Remove the stored developer override",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewUserFileStore("jafrctl")
		if err != nil {
			return err
		}
		if err := runtimecfg.ClearOverride(store); err != nil {
			return err
		}
		pterm.Success.Println("Override cleared")
		return nil
	},
}

func init() {
	setOverrideCmd.Flags().StringVar(&overrideFile, "file", "", "Read the override object from a JSON file")
}
