// Command trackerctl is the command-line client for the application tracker.
package main

import "github.com/apptracker/application-tracker/cmd/trackerctl/cmd"

func main() {
	cmd.Execute()
}
