package cmd

import (
	"AutoDjFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动AutoDjFM服务器",
	Long:  `启动AutoDjFM混音台的HTTP服务器，提供API服务和控制台WebSocket通道`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
