package auth

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/pkg/session"
)

var watch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	Long: `Shows the signed-in principal and token lifetime. With --watch the
session is kept fresh and every change is printed until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := provider()
		if err != nil {
			return err
		}
		m, err := p.Manager()
		if err != nil {
			return err
		}

		if !watch {
			s := m.Snapshot()
			if !s.Authenticated {
				return ErrNotSignedIn
			}
			printSession(s)
			return nil
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go keepFresh(ctx, m)

		for s := range m.ObserveAuthState(ctx) {
			printSession(s)
			if !s.Authenticated && s.LastError != nil && session.IsReason(s.LastError, session.InvalidCredentials) {
				return s.LastError
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the session fresh and print every change")
}

// keepFresh asks for the bearer token periodically so the manager refreshes
// it before expiry.
func keepFresh(ctx context.Context, m *session.Manager) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CurrentBearerToken(ctx)
		}
	}
}

func printSession(s session.Session) {
	pterm.DefaultSection.Println("Authentication Status")
	if !s.Authenticated {
		pterm.Warning.Println("Signed out")
		if s.LastError != nil {
			pterm.Warning.Printf("Last error: %v\n", s.LastError)
		}
		return
	}
	pterm.Info.Printf("Principal: %s\n", s.Principal())
	if exp := s.Credential.ExpiresAt; !exp.IsZero() {
		pterm.Info.Printf("Token expires at: %s (%s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Second))
	}
	if s.LastError != nil {
		pterm.Warning.Printf("Last refresh failed: %v\n", s.LastError)
	}
}
