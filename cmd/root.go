package cmd

import (
	"fmt"
	"log"
	"os"

	"AutoDjFM/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autodjfm_server",
	Short: "AutoDjFM is a browser DJ console with automatic track handoff.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting AutoDjFM server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
