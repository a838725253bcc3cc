package profile

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/pkg/apiclient"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient()
		if err != nil {
			return err
		}
		p, err := api.GetProfile(cmd.Context())
		if apiclient.IsNotFound(err) {
			pterm.Info.Println("No profile saved yet; use `trackerctl profile set`")
			return nil
		}
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println("Profile")
		pterm.Info.Printf("User:  %s\n", p.UserID)
		pterm.Info.Printf("Name:  %s %s\n", p.FirstName, p.LastName)
		pterm.Info.Printf("Email: %s\n", p.Email)
		return nil
	},
}
