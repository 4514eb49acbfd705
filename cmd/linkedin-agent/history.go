package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
	"github.com/spf13/cobra"
)

var (
	historyAgent string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest last",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		records := a.history.LoadHistory(ctx)
		if historyAgent != "" {
			agentType := runhistory.AgentType(historyAgent)
			if !agentType.IsValid() {
				return fmt.Errorf("unknown agent type: %s", historyAgent)
			}
			records = runhistory.Recent(records, agentType, historyLimit)
		} else if len(records) > historyLimit {
			records = records[len(records)-historyLimit:]
		}

		if flagJSON {
			printJSON(records)
			return nil
		}
		if len(records) == 0 {
			printMessage("No runs recorded")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				r.ID.String(),
				r.Timestamp.Local().Format(time.DateTime),
				string(r.AgentType()),
				summarize(r.Metrics),
			})
		}
		printTable([]string{"ID", "TIME", "AGENT", "METRICS"}, rows)
		return nil
	},
}

func summarize(metrics map[string]interface{}) string {
	parts := make([]string, 0, len(metrics))
	for _, key := range sortedKeys(metrics) {
		if key == "agent_type" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, metrics[key]))
	}
	return strings.Join(parts, " ")
}

func init() {
	historyListCmd.Flags().StringVar(&historyAgent, "agent", "", "only show runs of this agent type")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", runhistory.MaxRuns, "maximum number of runs to show")
	historyCmd.AddCommand(historyListCmd)
	rootCmd.AddCommand(historyCmd)
}
