package apps

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/apptracker/application-tracker/pkg/apiclient"
	"github.com/apptracker/application-tracker/pkg/tracker"
)

var (
	listCriteria tracker.Criteria
	sortKey      string
	sortDesc     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications",
	Long: `Lists your applications. Filters are case-insensitive substring matches
except --status, which must match exactly ("All" disables it).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient()
		if err != nil {
			return err
		}
		apps, err := api.GetApplications(cmd.Context(), "")
		if apiclient.IsNotFound(err) {
			pterm.Info.Println("No applications")
			return nil
		}
		if err != nil {
			return err
		}

		view := filterAndSort(apps, listCriteria, sortKey, sortDesc)
		if len(view) == 0 {
			pterm.Info.Println("No applications match")
			return nil
		}
		return renderTable(view)
	},
}

func init() {
	listCmd.Flags().StringVar(&listCriteria.Position, "position", "", "Filter by position")
	listCmd.Flags().StringVar(&listCriteria.Company, "company", "", "Filter by company")
	listCmd.Flags().StringVar(&listCriteria.Location, "location", "", "Filter by location")
	listCmd.Flags().StringVar(&listCriteria.Status, "status", "", "Filter by exact status")
	listCmd.Flags().StringVar(&sortKey, "sort", "", "Sort key (date, status, or any field name)")
	listCmd.Flags().BoolVar(&sortDesc, "desc", false, "Sort descending")
}

func filterAndSort(apps []tracker.Application, c tracker.Criteria, key string, desc bool) []tracker.Application {
	dir := tracker.Ascending
	if desc {
		dir = tracker.Descending
	}
	return tracker.Sort(tracker.Filter(apps, c), tracker.SortConfig{Key: key, Direction: dir}, nil)
}

func renderTable(apps []tracker.Application) error {
	data := pterm.TableData{{"ID", "Position", "Company", "Location", "Date", "Status"}}
	for _, a := range apps {
		data = append(data, []string{a.ID, a.Position, a.Company, a.Location, a.Date, a.Status})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
