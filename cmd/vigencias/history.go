package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/t77yq/vigencias-bridge/internal/storage"
)

var (
	historyLimit     int
	historyOperation string
	historyJSON      bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.executor.History(context.Background(), storage.RunFilter{Operation: historyOperation}, historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return printJSON(records)
		}
		if len(records) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		fmt.Printf("%-20s %-26s %-10s %-10s %-10s %s\n", "Started", "Operation", "Trigger", "Status", "Duration", "Error")
		fmt.Println(strings.Repeat("-", 100))
		for _, r := range records {
			fmt.Printf("%-20s %-26s %-10s %-10s %-10s %s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Operation,
				r.Trigger,
				r.Status,
				r.Duration.Round(100*time.Millisecond).String(),
				firstLine(r.Error))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	historyCmd.Flags().StringVar(&historyOperation, "operation", "", "only runs of this operation")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print records as JSON")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
