package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/cmd/trackerctl/cmd/apps"
	"github.com/apptracker/application-tracker/cmd/trackerctl/cmd/auth"
	"github.com/apptracker/application-tracker/cmd/trackerctl/cmd/profile"
	"github.com/apptracker/application-tracker/cmd/trackerctl/internal/client"
	"github.com/apptracker/application-tracker/cmd/trackerctl/internal/config"
	"github.com/apptracker/application-tracker/pkg/apiclient"
	"github.com/apptracker/application-tracker/pkg/logger"
	"github.com/apptracker/application-tracker/pkg/session"
)

var (
	serverURL string
	issuer    string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "trackerctl",
	Short: "Application tracker CLI",
	Long: `trackerctl signs in to the application tracker and manages your job
applications and profile from the terminal.

Configuration is read from TRACKER_* environment variables; flags override them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("server") {
			cfg.ServerURL = serverURL
		}
		if cmd.Flags().Changed("issuer") {
			cfg.Issuer = issuer
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr})
		provider := client.NewProvider(cfg, log)
		auth.SetClientProvider(provider)
		apps.SetClientProvider(provider)
		profile.SetClientProvider(provider)

		cmd.SetContext(config.InjectConfig(cmd.Context(), cfg))
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(describe(err))
		os.Exit(1)
	}
}

// describe turns API and sign-in failures into something a user can act on.
func describe(err error) string {
	var af *session.AuthFailure
	switch {
	case errors.As(err, &af):
		return af.Error()
	case errors.Is(err, auth.ErrNotSignedIn), apiclient.NeedsReauth(err):
		return "not signed in or session expired; run `trackerctl auth login`"
	case apiclient.IsNotFound(err):
		return "not found"
	case apiclient.IsNetwork(err):
		return "cannot reach the tracker server"
	}
	var tf *apiclient.TransportFailure
	if errors.As(err, &tf) {
		return fmt.Sprintf("request failed with status %s", tf.Status())
	}
	return err.Error()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Tracker API server URL (TRACKER_SERVER)")
	rootCmd.PersistentFlags().StringVar(&issuer, "issuer", "", "OpenID issuer used to sign in (TRACKER_ISSUER)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and auth state changes")
	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(apps.AppsCmd)
	rootCmd.AddCommand(profile.ProfileCmd)
}
