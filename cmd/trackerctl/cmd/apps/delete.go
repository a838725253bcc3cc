package apps

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <application-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an application",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient()
		if err != nil {
			return err
		}
		deleted, err := api.DeleteApplication(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		pterm.Success.Printf("Deleted %s\n", deleted.ID)
		return nil
	},
}
