package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/linkedin-agent/classifier"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <headline>",
	Short: "Classify a profile headline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "classify")
		if err != nil {
			return err
		}
		defer a.Close()

		cls, err := newClassifier(ctx, a.config, a.logger)
		if err != nil {
			return err
		}

		headline := strings.Join(args, " ")
		label, err := cls.Classify(ctx, headline)
		if err != nil {
			return fmt.Errorf("failed to classify headline: %w", err)
		}

		if flagJSON {
			printJSON(map[string]string{"headline": headline, "label": string(label)})
			return nil
		}
		printMessage(string(label))
		return nil
	},
}

// newClassifier returns the Bedrock classifier when llm.enabled is set and
// the keyword classifier otherwise.
func newClassifier(ctx context.Context, cfg *Config, log logger.Logger) (classifier.Classifier, error) {
	if !cfg.LLM.Enabled {
		return classifier.NewKeywordClassifier(), nil
	}
	cls, err := classifier.NewBedrockClassifier(ctx, cfg.LLM.BedrockRegion, cfg.LLM.BedrockModel, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}
	return cls, nil
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
