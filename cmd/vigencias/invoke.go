package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/t77yq/vigencias-bridge/internal/model"
	"github.com/t77yq/vigencias-bridge/internal/storage"
)

var invokeParams []string

var invokeCmd = &cobra.Command{
	Use:   "invoke <operation>",
	Short: "Run one operation through the process bridge",
	Example: `  vigencias invoke copy_database -p SourcePath='Z:\SAE\SAE90EMPRE01.FDB' -p DestinationPath='C:\SAE\SAE90EMPRE01.FDB'
  vigencias invoke test_mysql_connection -p ConfigJson='{"mysql":{"host":"localhost"}}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(invokeParams)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result := a.executor.Invoke(ctx, storage.TriggerManual, args[0], params)
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("%s failed", args[0])
		}
		return nil
	},
}

func init() {
	invokeCmd.Flags().StringArrayVarP(&invokeParams, "param", "p", nil, "parameter as Key=Value, repeatable, order is kept")
}

// parseParams turns Key=Value flags into ordered parameters.
func parseParams(raw []string) (model.Params, error) {
	var params model.Params
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected Key=Value", kv)
		}
		params = params.Set(key, value)
	}
	return params, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
