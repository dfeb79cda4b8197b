package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nerverun/nerve/internal/serialize"
	"github.com/nerverun/nerve/pkg/models"
)

// OpenAICompatible speaks the OpenAI chat-completions wire format against
// any vendor that implements it. The hosted vendors (Fireworks, Groq,
// Novita, NIM, DeepSeek, XAI, Mistral, Hugging Face) are this client with a
// different base URL and credential variable.
type OpenAICompatible struct {
	vendor string
	model  string
	client *openai.Client
	rateLimiter
}

// CompatConfig parameterizes the shared base per vendor.
type CompatConfig struct {
	// Vendor names the backend in errors and logs ("groq", "deepseek", ...).
	Vendor string

	// BaseURL is the vendor's OpenAI-compatible endpoint, including the
	// version prefix (e.g. "https://api.groq.com/openai/v1").
	BaseURL string

	// APIKeyEnv names the environment variable holding the credential.
	// Empty means the endpoint is unauthenticated (local http servers).
	APIKeyEnv string

	Model string
}

// apiKeyFromEnv reads a credential variable, returning "" when unset.
func apiKeyFromEnv(name string) string { return os.Getenv(name) }

// NewOpenAICompatible builds the shared base client. A declared credential
// variable that is unset fails with ErrConfigMissing.
func NewOpenAICompatible(cfg CompatConfig) (*OpenAICompatible, error) {
	key := ""
	if cfg.APIKeyEnv != "" {
		key = apiKeyFromEnv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%w: %s not set", ErrConfigMissing, cfg.APIKeyEnv)
		}
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAICompatible{
		vendor:      cfg.Vendor,
		model:       cfg.Model,
		client:      openai.NewClientWithConfig(clientCfg),
		rateLimiter: newRateLimiter(),
	}, nil
}

// toOpenAITools translates the provider-agnostic tool schemas to the OpenAI
// function-calling format.
func toOpenAITools(defs []models.ToolDef) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, len(defs))
	for i, def := range defs {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}
	return tools
}

// toOpenAIMessages flattens the windowed history into the chat-completions
// message list. Tool-call IDs are assigned by walking the conversation and
// numbering each agent-side call, so the feedback message that follows can
// reference the same ID; this keeps IDs unique within one conversation.
func toOpenAIMessages(opts ChatOptions) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(opts.History)+2)

	if opts.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.TrimSpace(opts.SystemPrompt),
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: strings.TrimSpace(opts.Prompt),
	})

	callIdx := 0
	lastCallID := ""
	for _, m := range opts.History {
		switch m.Kind {
		case models.MessageAgent:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: strings.TrimSpace(m.Content),
			}
			if m.ToolCall != nil {
				callIdx++
				lastCallID = toolCallID(callIdx)
				args, _ := json.Marshal(toolCallArguments(*m.ToolCall))
				msg.ToolCalls = []openai.ToolCall{{
					ID:   lastCallID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      m.ToolCall.Action,
						Arguments: string(args),
					},
				}}
			}
			msgs = append(msgs, msg)
		case models.MessageFeedback:
			if m.ToolCall != nil && lastCallID != "" {
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    m.Result.String(),
					ToolCallID: lastCallID,
				})
				continue
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Result.String(),
			})
		}
	}
	return msgs
}

// invocationsFromToolCalls converts the provider's tool calls back into the
// runtime's invocation shape. Argument values that aren't strings are
// re-encoded as JSON text.
func invocationsFromToolCalls(calls []openai.ToolCall) []models.Invocation {
	var invs []models.Invocation
	for _, tc := range calls {
		var rawArgs map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &rawArgs); err != nil {
			continue
		}
		args := make(map[string]string, len(rawArgs))
		for k, v := range rawArgs {
			if s, ok := v.(string); ok {
				args[k] = s
				continue
			}
			encoded, _ := json.Marshal(v)
			args[k] = string(encoded)
		}
		invs = append(invs, serialize.InvocationFromToolCall(tc.Function.Name, args))
	}
	return invs
}

func (c *OpenAICompatible) Chat(ctx context.Context, opts ChatOptions) (ChatResponse, error) {
	if err := c.wait(ctx); err != nil {
		return ChatResponse{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(opts),
		Tools:    toOpenAITools(opts.Tools),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%s chat: %w", c.vendor, err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("%s chat: empty choices", c.vendor)
	}

	choice := resp.Choices[0].Message
	return ChatResponse{
		Content:   choice.Content,
		ToolCalls: invocationsFromToolCalls(choice.ToolCalls),
		Usage: &models.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// CheckSupportedFeatures probes for native tool calling by offering a lone
// "test" tool and asking the model to call it. A probe failure means "no
// native tools", not a fatal error.
func (c *OpenAICompatible) CheckSupportedFeatures(ctx context.Context) (SupportedFeatures, error) {
	if err := c.wait(ctx); err != nil {
		return DefaultFeatures(), err
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: "Execute the test function.",
		}},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "test",
				Description: "This is a test function.",
				Parameters: map[string]any{
					"type":       "object",
					"required":   []string{},
					"properties": map[string]any{},
				},
			},
		}},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil || len(resp.Choices) == 0 {
		return DefaultFeatures(), nil
	}
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		if tc.Function.Name == "test" {
			return SupportedFeatures{SystemPrompt: true, Tools: true}, nil
		}
	}
	return DefaultFeatures(), nil
}

func (c *OpenAICompatible) CheckRateLimit(ctx context.Context, errText string) bool {
	return c.checkRateLimit(ctx, errText)
}
