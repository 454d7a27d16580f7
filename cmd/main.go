package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "saime-api",
	Short:        "SAIME civil registry lookup API",
	Long:         "Serves identity lookups against the SAIME civil registry. Runs the HTTP API when no command is given.",
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
