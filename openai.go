package notequiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const submitQuizzesTool = "submit_quizzes"

// OpenAICapability generates quiz payloads with an OpenAI compatible chat completion API
type OpenAICapability struct {
	client *openai.Client
	model  string
}

// NewOpenAICapability creates a capability from the AI configuration.
// Without an API key the capability exists but reports itself unavailable.
func NewOpenAICapability(cfg AIConfig) *OpenAICapability {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	c := &OpenAICapability{model: model}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return c
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	c.client = openai.NewClientWithConfig(clientConfig)
	return c
}

// Available reports whether an API key was configured.
func (c *OpenAICapability) Available() bool {
	return c.client != nil
}

// Complete sends the passage and returns the quizzes array as raw JSON
func (c *OpenAICapability) Complete(ctx context.Context, passage string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("openai api key is not set: %w", ErrCapabilityUnavailable)
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: BuildPrompt(),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: passage,
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        submitQuizzesTool,
						Description: "Submit quizzes generated from the passage",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"quizzes": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"question": map[string]interface{}{
												"type":        "string",
												"description": "The question text",
											},
											"corrects": map[string]interface{}{
												"type":        "array",
												"items":       map[string]interface{}{"type": "string"},
												"description": "Every acceptable correct answer",
											},
											"damys": map[string]interface{}{
												"type":        "array",
												"items":       map[string]interface{}{"type": "string"},
												"description": "Plausible wrong answers, none of which is correct",
											},
										},
										"required": []string{"question", "corrects", "damys"},
									},
								},
							},
							"required": []string{"quizzes"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: submitQuizzesTool,
				},
			},
		},
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	message := resp.Choices[0].Message
	for _, call := range message.ToolCalls {
		if call.Function.Name == submitQuizzesTool {
			return quizzesArgument(call.Function.Arguments), nil
		}
	}
	return message.Content, nil
}

// quizzesArgument unwraps {"quizzes": [...]} and falls back to the raw arguments.
func quizzesArgument(arguments string) string {
	var args struct {
		Quizzes json.RawMessage `json:"quizzes"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || len(args.Quizzes) == 0 {
		return arguments
	}
	return string(args.Quizzes)
}
