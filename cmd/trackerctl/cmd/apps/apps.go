package apps

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/cmd/trackerctl/internal/client"
	"github.com/apptracker/application-tracker/pkg/apiclient"
)

var clientProvider *client.Provider

// AppsCmd is the parent command for application operations
var AppsCmd = &cobra.Command{
	Use:     "apps",
	Aliases: []string{"applications"},
	Short:   "Manage tracked job applications",
}

func init() {
	AppsCmd.AddCommand(listCmd)
	AppsCmd.AddCommand(getCmd)
	AppsCmd.AddCommand(saveCmd)
	AppsCmd.AddCommand(deleteCmd)
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
