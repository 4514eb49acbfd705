package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
)

const classifyPrompt = `Classify the LinkedIn headline below into one of these categories: practicing, general, other.

practicing: lawyers, attorneys, partners or counsel at a law firm or in-house.
general: people around the legal industry who do not practice, such as legal tech, legal ops, students, paralegals and recruiters.
other: everyone else.

Headline:
%s

Respond in this exact format:
CATEGORY: [chosen category]`

// ModelInvoker is the part of the Bedrock runtime client used here.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClassifier asks an Anthropic model on AWS Bedrock. When the model
// call fails, classification falls back to keywords.
type BedrockClassifier struct {
	client    ModelInvoker
	modelID   string
	maxTokens int
	fallback  *KeywordClassifier
	logger    logger.Logger
}

// NewBedrockClassifier creates a classifier using the default AWS credential
// chain for region.
func NewBedrockClassifier(ctx context.Context, region, modelID string, log logger.Logger) (*BedrockClassifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewBedrockClassifierWithClient(bedrockruntime.NewFromConfig(cfg), modelID, log), nil
}

// NewBedrockClassifierWithClient creates a classifier over an existing client.
func NewBedrockClassifierWithClient(client ModelInvoker, modelID string, log logger.Logger) *BedrockClassifier {
	return &BedrockClassifier{
		client:    client,
		modelID:   modelID,
		maxTokens: 512,
		fallback:  NewKeywordClassifier(),
		logger:    log.WithField("component", "classifier"),
	}
}

func (c *BedrockClassifier) Classify(ctx context.Context, text string) (Label, error) {
	reply, err := c.Generate(ctx, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		c.logger.Warn(ctx, "model classification failed, using keywords", map[string]interface{}{
			"error": err.Error(),
		})
		return c.fallback.Classify(ctx, text)
	}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToUpper(line), "CATEGORY:") {
			return ParseLabel(strings.Trim(line[len("CATEGORY:"):], " []")), nil
		}
	}
	return ParseLabel(reply), nil
}

// Generate sends prompt as a single user message and returns the reply text.
func (c *BedrockClassifier) Generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        c.maxTokens,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": prompt,
					},
				},
			},
		},
	}

	payload, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	text := strings.TrimSpace(response.Content[0].Text)
	if text == "" {
		return "", fmt.Errorf("empty response text")
	}
	return text, nil
}
