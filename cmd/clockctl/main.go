package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	rootCmd    = &cobra.Command{
		Use:   "clockctl",
		Short: "Control a running usagiclock over HTTP",
		Long: `clockctl talks to the usagiclock HTTP API: it reads status, edits the
persisted alarm settings and sends debug control commands.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", "http://localhost:8080", "usagiclock base URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
