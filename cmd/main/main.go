package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	hash    string
	version string
)

func main() {
	// request-monitor is the base command.
	var root = &cobra.Command{
		Use:           "request-monitor",
		Short:         "request-monitor serves request-processing dashboards from the request log",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to config file (built-in defaults when empty)")

	root.AddCommand(Serve())
	root.AddCommand(Render())
	root.AddCommand(Config())
	root.AddCommand(Health())
	root.AddCommand(Version(hash, version))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
