package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/t77yq/vigencias-bridge/internal/scheduler"
)

var nextLocale string

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show when the scheduled job fires next",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		locale := a.settings.Scheduler.Locale
		if nextLocale != "" {
			locale = scheduler.Locale(nextLocale)
		}

		at, ok := scheduler.NextFireTime(a.store.Current().Process.ScheduledExecution, time.Now())
		fmt.Println(scheduler.FormatNextFire(at, ok, locale))
		return nil
	},
}

func init() {
	nextCmd.Flags().StringVar(&nextLocale, "locale", "", "es or en (default scheduler.locale)")
}
