package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Tune settings from the recent run history without running an agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "optimize")
		if err != nil {
			return err
		}
		defer a.Close()

		adjustments := a.optimizer.Optimize(ctx)

		if flagJSON {
			printJSON(adjustments)
			return nil
		}
		if len(adjustments) == 0 {
			printMessage("No adjustments")
			return nil
		}

		rows := make([][]string, 0, len(adjustments))
		for _, adj := range adjustments {
			rows = append(rows, []string{
				string(adj.AgentType),
				adj.Key,
				string(adj.Direction),
				fmt.Sprintf("%g", adj.Before),
				fmt.Sprintf("%g", adj.After),
				strconv.Itoa(adj.Runs),
				strconv.FormatBool(adj.Persisted),
			})
		}
		printTable([]string{"AGENT", "KEY", "DIRECTION", "BEFORE", "AFTER", "RUNS", "SAVED"}, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}
