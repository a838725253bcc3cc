package profile

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/pkg/apiclient"
	"github.com/apptracker/application-tracker/pkg/tracker"
)

var (
	email     string
	firstName string
	lastName  string
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Update your profile",
	Long: `Updates your profile. Flags that are not given keep their stored
value; the server always receives the whole record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if !flags.Changed("email") && !flags.Changed("first-name") && !flags.Changed("last-name") {
			return fmt.Errorf("nothing to update: pass --email, --first-name or --last-name")
		}

		api, err := apiClient()
		if err != nil {
			return err
		}
		current, err := api.GetProfile(cmd.Context())
		switch {
		case apiclient.IsNotFound(err):
			current = &tracker.Profile{}
		case err != nil:
			return err
		}

		next := merge(*current, flags.Changed("email"), flags.Changed("first-name"), flags.Changed("last-name"))
		if err := api.SaveProfile(cmd.Context(), next); err != nil {
			return err
		}
		pterm.Success.Println("Profile saved")
		return nil
	},
}

func init() {
	setCmd.Flags().StringVar(&email, "email", "", "Email address")
	setCmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	setCmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
}

func merge(p tracker.Profile, setEmail, setFirst, setLast bool) tracker.Profile {
	p.UserID = ""
	if setEmail {
		p.Email = email
	}
	if setFirst {
		p.FirstName = firstName
	}
	if setLast {
		p.LastName = lastName
	}
	return p
}
