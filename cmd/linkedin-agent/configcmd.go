package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and edit the tunable settings document",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value at a dotted key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "config")
		if err != nil {
			return err
		}
		defer a.Close()

		value := a.settings.Get(args[0], nil)
		if value == nil {
			return fmt.Errorf("key not set: %s", args[0])
		}
		printJSON(value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set the value at a dotted key and save",
	Long: `Set the value at a dotted key and save the document.
The value is parsed as JSON when it can be, so 5, true and ["a","b"] keep their
types; anything else is stored as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "config")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.settings.Set(ctx, args[0], parseValue(args[1])); err != nil {
			return fmt.Errorf("failed to set %s: %w", args[0], err)
		}
		printMessage(fmt.Sprintf("Set %s", args[0]))
		return nil
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the whole settings document",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "config")
		if err != nil {
			return err
		}
		defer a.Close()

		printJSON(a.settings.Snapshot())
		return nil
	},
}

func parseValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	rootCmd.AddCommand(settingsCmd)
}
