package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	settingsFile string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:           "vigencias",
	Short:         "Scheduled vigencias maintenance job and process bridge",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsFile, "config", "c", "", "settings file (default ./config/config.yaml or $HOME/.vigencias/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
