package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerverun/nerve/internal/serialize"
	"github.com/nerverun/nerve/pkg/models"
)

const ollamaDefaultPort = 11434

// OllamaClient speaks Ollama's native chat API over plain HTTP. The native
// API (rather than Ollama's OpenAI-compatible shim) is used so the context
// window can be set per request via the num_ctx option.
type OllamaClient struct {
	baseURL       string
	model         string
	contextWindow int
	httpClient    *http.Client
	rateLimiter
}

func NewOllamaClient(host string, port int, model string, contextWindow int) (*OllamaClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = ollamaDefaultPort
	}
	return &OllamaClient{
		baseURL:       fmt.Sprintf("http://%s:%d", host, port),
		model:         model,
		contextWindow: contextWindow,
		httpClient:    &http.Client{Timeout: 120 * time.Second},
		rateLimiter:   newRateLimiter(),
	}, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaChatResponse struct {
	Message struct {
		Role      string           `json:"role"`
		Content   string           `json:"content"`
		ToolCalls []ollamaToolCall `json:"tool_calls"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func (c *OllamaClient) buildRequest(opts ChatOptions) ollamaChatRequest {
	var messages []ollamaMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: strings.TrimSpace(opts.SystemPrompt)})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: strings.TrimSpace(opts.Prompt)})
	for _, m := range opts.History {
		switch m.Kind {
		case models.MessageAgent:
			messages = append(messages, ollamaMessage{Role: "assistant", Content: m.Content})
		case models.MessageFeedback:
			messages = append(messages, ollamaMessage{Role: "user", Content: m.Result.String()})
		}
	}

	req := ollamaChatRequest{Model: c.model, Messages: messages, Stream: false}
	if c.contextWindow > 0 {
		req.Options = map[string]any{"num_ctx": c.contextWindow}
	}
	for _, def := range opts.Tools {
		req.Tools = append(req.Tools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return req
}

func (c *OllamaClient) send(ctx context.Context, req ollamaChatRequest) (*ollamaChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, string(raw))
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("ollama chat: decoding response: %w", err)
	}
	return &out, nil
}

func (c *OllamaClient) Chat(ctx context.Context, opts ChatOptions) (ChatResponse, error) {
	if err := c.wait(ctx); err != nil {
		return ChatResponse{}, err
	}

	resp, err := c.send(ctx, c.buildRequest(opts))
	if err != nil {
		return ChatResponse{}, err
	}

	var invs []models.Invocation
	for _, tc := range resp.Message.ToolCalls {
		args := make(map[string]string, len(tc.Function.Arguments))
		for k, v := range tc.Function.Arguments {
			if s, ok := v.(string); ok {
				args[k] = s
				continue
			}
			encoded, _ := json.Marshal(v)
			args[k] = string(encoded)
		}
		invs = append(invs, serialize.InvocationFromToolCall(tc.Function.Name, args))
	}

	return ChatResponse{
		Content:   resp.Message.Content,
		ToolCalls: invs,
		Usage: &models.Usage{
			InputTokens:  resp.PromptEvalCount,
			OutputTokens: resp.EvalCount,
		},
	}, nil
}

func (c *OllamaClient) CheckSupportedFeatures(ctx context.Context) (SupportedFeatures, error) {
	if err := c.wait(ctx); err != nil {
		return DefaultFeatures(), err
	}

	req := ollamaChatRequest{
		Model:    c.model,
		Messages: []ollamaMessage{{Role: "user", Content: "Execute the test function."}},
		Stream:   false,
		Tools: []ollamaTool{{
			Type: "function",
			Function: ollamaToolFunction{
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

	resp, err := c.send(ctx, req)
	if err != nil {
		// models without tool support error out on the tools field
		return DefaultFeatures(), nil
	}
	for _, tc := range resp.Message.ToolCalls {
		if tc.Function.Name == "test" {
			return SupportedFeatures{SystemPrompt: true, Tools: true}, nil
		}
	}
	return DefaultFeatures(), nil
}

func (c *OllamaClient) CheckRateLimit(ctx context.Context, errText string) bool {
	return c.checkRateLimit(ctx, errText)
}
