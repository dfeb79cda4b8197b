package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nerverun/nerve/internal/serialize"
	"github.com/nerverun/nerve/pkg/models"
)

const anthropicMaxTokens = 4096

// AnthropicClient talks to the Anthropic Messages API through the official
// SDK, including tool-use content blocks for native tool calling.
type AnthropicClient struct {
	model  string
	client anthropic.Client
	rateLimiter
}

func NewAnthropicClient(model string) (*AnthropicClient, error) {
	key := apiKeyFromEnv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", ErrConfigMissing)
	}
	return &AnthropicClient{
		model:       model,
		client:      anthropic.NewClient(option.WithAPIKey(key)),
		rateLimiter: newRateLimiter(),
	}, nil
}

// toAnthropicTools translates the provider-agnostic schemas into tool
// definition params.
func toAnthropicTools(defs []models.ToolDef) []anthropic.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := def.Parameters["properties"]; ok {
			schema.Properties = props
		}
		if req, ok := def.Parameters["required"].([]string); ok {
			schema.Required = req
		}
		param := anthropic.ToolParam{
			Name:        def.Name,
			InputSchema: schema,
		}
		if def.Description != "" {
			param.Description = anthropic.String(def.Description)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

// toAnthropicMessages flattens the conversation. The API rejects empty
// content blocks and a trailing assistant message (it would pre-fill the
// reply), so empty agent messages are dropped, empty feedback becomes a
// placeholder, and a dangling assistant tail is removed.
func toAnthropicMessages(opts ChatOptions) []anthropic.MessageParam {
	msgs := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(strings.TrimSpace(opts.Prompt))),
	}
	for _, m := range opts.History {
		switch m.Kind {
		case models.MessageAgent:
			if trimmed := strings.TrimSpace(m.Content); trimmed != "" {
				msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(trimmed)))
			}
		case models.MessageFeedback:
			content := strings.TrimSpace(m.Result.String())
			if content == "" {
				content = "no output"
			}
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
		}
	}
	if len(msgs) > 0 && msgs[len(msgs)-1].Role == anthropic.MessageParamRoleAssistant {
		msgs = msgs[:len(msgs)-1]
	}
	return msgs
}

func (c *AnthropicClient) Chat(ctx context.Context, opts ChatOptions) (ChatResponse, error) {
	if err := c.wait(ctx); err != nil {
		return ChatResponse{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  toAnthropicMessages(opts),
		Tools:     toAnthropicTools(opts.Tools),
	}
	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: strings.TrimSpace(opts.SystemPrompt)}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("anthropic chat: %w", err)
	}

	var content strings.Builder
	var invs []models.Invocation
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			args := map[string]string{}
			var rawArgs map[string]any
			if err := json.Unmarshal(v.Input, &rawArgs); err == nil {
				for k, val := range rawArgs {
					if s, ok := val.(string); ok {
						args[k] = s
						continue
					}
					encoded, _ := json.Marshal(val)
					args[k] = string(encoded)
				}
			}
			invs = append(invs, serialize.InvocationFromToolCall(v.Name, args))
		}
	}

	return ChatResponse{
		Content:   content.String(),
		ToolCalls: invs,
		Usage: &models.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

func (c *AnthropicClient) CheckSupportedFeatures(ctx context.Context) (SupportedFeatures, error) {
	if err := c.wait(ctx); err != nil {
		return DefaultFeatures(), err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: "You are an helpful assistant."}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Execute the test function.")),
		},
		Tools: toAnthropicTools([]models.ToolDef{{
			Name:        "test",
			Description: "This is a test function.",
			Parameters: map[string]any{
				"type":       "object",
				"required":   []string{},
				"properties": map[string]any{},
			},
		}}),
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return DefaultFeatures(), nil
	}
	for _, block := range resp.Content {
		if v, ok := block.AsAny().(anthropic.ToolUseBlock); ok && v.Name == "test" {
			return SupportedFeatures{SystemPrompt: true, Tools: true}, nil
		}
	}
	return DefaultFeatures(), nil
}

func (c *AnthropicClient) CheckRateLimit(ctx context.Context, errText string) bool {
	return c.checkRateLimit(ctx, errText)
}
