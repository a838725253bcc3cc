package profile

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/cmd/trackerctl/internal/client"
	"github.com/apptracker/application-tracker/pkg/apiclient"
)

var clientProvider *client.Provider

// ProfileCmd is the parent command for profile operations
var ProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View or update your profile",
}

func init() {
	ProfileCmd.AddCommand(getCmd)
	ProfileCmd.AddCommand(setCmd)
}

// SetClientProvider injects the shared session and client provider.
func SetClientProvider(provider *client.Provider) {
	clientProvider = provider
}

func apiClient() (*apiclient.Client, error) {
	if clientProvider == nil {
		return nil, fmt.Errorf("client provider not configured")
	}
	return clientProvider.APIClient()
}
