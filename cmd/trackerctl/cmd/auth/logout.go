package auth

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var everywhere bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Long: `Forgets the stored credential. With --everywhere the server is first
asked to reject every credential issued to you so far, signing out all of
your devices.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := provider()
		if err != nil {
			return err
		}
		m, err := p.Manager()
		if err != nil {
			return err
		}

		if everywhere {
			if !m.Snapshot().Authenticated {
				return ErrNotSignedIn
			}
			api, err := p.APIClient()
			if err != nil {
				return err
			}
			if err := api.RevokeSessions(cmd.Context()); err != nil {
				return err
			}
			pterm.Info.Println("All sessions revoked")
		}

		m.Clear()
		pterm.Success.Println("Signed out")
		return nil
	},
}

func init() {
	logoutCmd.Flags().BoolVar(&everywhere, "everywhere", false, "Revoke every session on the server, not just this one")
}
