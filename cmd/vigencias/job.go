package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/t77yq/vigencias-bridge/internal/storage"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Copy the source database and process vigencias now",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		summary, err := a.executor.RunJob(ctx, storage.TriggerManual)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}
