package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync loop and the HTTP API",
	Long: `Serve reloads the collection from the remote service on an interval,
optionally imports a Homepage file, and serves the HTTP API until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return application.Serve(cmd.Context())
	},
}
