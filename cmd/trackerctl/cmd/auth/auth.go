package auth

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/cmd/trackerctl/internal/client"
)

// ErrNotSignedIn is returned by commands that need a stored session.
var ErrNotSignedIn = errors.New("not signed in")

var clientProvider *client.Provider

// AuthCmd is the parent command for auth operations
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Commands for signing in, signing out, and inspecting the current session.`,
}

func init() {
	AuthCmd.AddCommand(loginCmd)
	AuthCmd.AddCommand(logoutCmd)
	AuthCmd.AddCommand(statusCmd)
}

// SetClientProvider injects the shared session and client provider.
func SetClientProvider(provider *client.Provider) {
	clientProvider = provider
}

func provider() (*client.Provider, error) {
	if clientProvider == nil {
		return nil, fmt.Errorf("client provider not configured")
	}
	return clientProvider, nil
}
