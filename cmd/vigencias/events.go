package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow events published by a running server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if a.publisher == nil {
			return errors.New("nats.url is not configured")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		err = a.publisher.SubscribeEvents(ctx, func(e model.Event) {
			fmt.Printf("%s [%s] %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Level, e.Message)
		})
		if err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	},
}
