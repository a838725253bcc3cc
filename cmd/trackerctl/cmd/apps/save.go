package apps

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/pkg/tracker"
)

var (
	saveFile       string
	idempotencyKey string
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or replace an application",
	Long: `Reads an application as JSON from --file (or stdin with "-") and saves
it. A record with an applicationId replaces that application in full;
without one a new application is created.

Creates carry an idempotency key so a retried request never creates a
duplicate. One is generated unless --idempotency-key is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := readApplication(cmd.InOrStdin(), saveFile)
		if err != nil {
			return err
		}
		if app.Status != "" && !tracker.ValidStatus(app.Status) {
			return fmt.Errorf("unknown status %q", app.Status)
		}

		api, err := apiClient()
		if err != nil {
			return err
		}
		key := idempotencyKey
		if app.ID == "" && key == "" {
			key = uuid.NewString()
		}
		saved, err := api.SaveApplicationIdempotent(cmd.Context(), *app, key)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Saved %s (%s at %s)\n", saved.ID, saved.Position, saved.Company)
		return nil
	},
}

func init() {
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "-", "JSON file to read, - for stdin")
	saveCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for creates")
}

func readApplication(stdin io.Reader, path string) (*tracker.Application, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var app tracker.Application
	if err := json.NewDecoder(r).Decode(&app); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	return &app, nil
}
