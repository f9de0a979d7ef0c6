package auth

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/internal/app"
	"github.com/Janine65/jafr-ng-core/pkg/session"
)

var (
	clientID     string
	clientSecret string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the configured identity provider",
	Long: `Authenticates against the identity provider from environment.json.

Two methods are supported:
1. Interactive login (default): initiates a device authorization flow.
2. Service account login: uses a client ID and secret for non-interactive
   authentication. Use the --client-id and --client-secret flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Load(configDir)
		if err != nil {
			return err
		}

		if clientID != "" && clientSecret != "" {
			pterm.Info.Println("Authenticating as service account...")
			state, err := a.Session.LoginClientCredentials(cmd.Context(), clientID, clientSecret)
			if err != nil {
				return err
			}
			pterm.Success.Printf("Service account login successful (client %s, expires %s)\n",
				clientID, state.ExpiresAt.Format("15:04:05"))
			return nil
		}

		state, err := a.Session.Login(cmd.Context(), func(prompt session.DevicePrompt) {
			pterm.DefaultSection.Println("Device Authorization")
			pterm.Info.Printf("Open %s and enter code %s\n", prompt.VerificationURI, prompt.UserCode)
			if prompt.VerificationURIComplete != "" {
				pterm.Info.Printf("Or open %s directly\n", prompt.VerificationURIComplete)
			}
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		pterm.Success.Printf("Logged in as %s (%s)\n", state.Subject, state.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&clientID, "client-id", "", "Client ID for service account authentication")
	loginCmd.Flags().StringVar(&clientSecret, "client-secret", "", "Client secret for service account authentication")
}
