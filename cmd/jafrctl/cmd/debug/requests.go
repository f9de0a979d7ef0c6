package debug

import (
	"fmt"
	"net/http"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Janine65/jafr-ng-core/cmd/jafrctl/internal/app"
)

var requestsCmd = &cobra.Command{
	Use:   "requests <path>...",
	Short: "Probe API paths through the full request pipeline",
	Long: `Issues GET requests through the same interceptor pipeline the
application shell uses (rewrite, auth, envelope, errors, debug log) and
dumps the recorded request log afterwards. Relative paths are rewritten
to the configured API URL.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Load(configDir)
		if err != nil {
			return err
		}

		for _, path := range args {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, a.Env.APIURL+path, nil)
			if err != nil {
				return fmt.Errorf("build request for %s: %w", path, err)
			}
			resp, err := a.Client.Do(req)
			if err != nil {
				pterm.Error.Printf("%s: %v\n", path, err)
				continue
			}
			resp.Body.Close()
		}

		pterm.DefaultSection.Println("Request Log")
		rows := pterm.TableData{{"TIME", "METHOD", "URL", "STATUS", "DURATION"}}
		for _, entry := range a.Log.Entries() {
			status := entry.Error
			if status == "" {
				status = fmt.Sprintf("%d", entry.Status)
			}
			rows = append(rows, []string{
				entry.Time.Format("15:04:05.000"),
				entry.Method,
				entry.URL,
				status,
				entry.Duration.String(),
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}

		if meta := a.Tracker.Current(); meta.SessionID != "" || meta.Stage != "" {
			pterm.Info.Printf("Server meta: session=%s stage=%s version=%s\n",
				meta.SessionID, meta.Stage, meta.Version)
		}
		for _, nav := range a.Navigator.Calls() {
			pterm.Warning.Printf("Pipeline would navigate to %s %v\n", nav.Route, nav.Params)
		}
		return nil
	},
}
