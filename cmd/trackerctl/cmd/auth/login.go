package auth

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/pkg/session"
)

var (
	username string
	password string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the tracker",
	Long: `Signs in with your username and password and stores the resulting
credential in ~/.tracker/credentials.json (mode 0600). The credential is
refreshed automatically by later commands until the identity provider
invalidates it.

The password is read from --password, then TRACKER_PASSWORD, then an
interactive prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := provider()
		if err != nil {
			return err
		}
		m, err := p.Manager()
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		if username == "" {
			if username, err = pterm.DefaultInteractiveTextInput.Show("Username"); err != nil {
				return err
			}
		}
		if password == "" {
			password = os.Getenv("TRACKER_PASSWORD")
		}
		if password == "" {
			if password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password"); err != nil {
				return err
			}
		}

		spinner, _ := pterm.DefaultSpinner.Start("Signing in...")
		s, err := m.Acquire(cmd.Context(), session.SubjectCredentials{Username: username, Password: password})
		if err != nil {
			if spinner != nil {
				spinner.Fail("Sign-in failed")
			}
			return err
		}
		if spinner != nil {
			spinner.Success("Signed in")
		}

		pterm.Info.Printf("Authenticated as: %s\n", s.Principal())
		if !s.Credential.ExpiresAt.IsZero() {
			pterm.Info.Printf("Token expires at: %s\n", s.Credential.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when empty)")
	loginCmd.Flags().StringVar(&password, "password", "", "Password (prefer TRACKER_PASSWORD or the prompt)")
}
