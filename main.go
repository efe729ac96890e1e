package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "market_dashboard",
	Short: "Crypto market dashboard: live tickers, top coins by volume with moving averages",
	// Without a subcommand the service runs, matching the serve command.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files loaded before reading the environment")
	rootCmd.AddCommand(serveCmd, topCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
