package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/nerverun/nerve/internal/serialize"
	"github.com/nerverun/nerve/pkg/models"
)

// GoogleClient talks to the Gemini API through the official genai SDK.
type GoogleClient struct {
	model  string
	client *genai.Client
	rateLimiter
}

func NewGoogleClient(model string) (*GoogleClient, error) {
	key := apiKeyFromEnv("GEMINI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", ErrConfigMissing)
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}
	return &GoogleClient{
		model:       model,
		client:      client,
		rateLimiter: newRateLimiter(),
	}, nil
}

// toGeminiTools translates the provider-agnostic schemas into a function
// declaration set.
func toGeminiTools(defs []models.ToolDef) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		schema := &genai.Schema{Type: genai.TypeObject}
		if req, ok := def.Parameters["required"].([]string); ok {
			schema.Required = req
		}
		if props, ok := def.Parameters["properties"].(map[string]any); ok && len(props) > 0 {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, p := range props {
				prop := &genai.Schema{Type: genai.TypeString}
				if pm, ok := p.(map[string]any); ok {
					if desc, ok := pm["description"].(string); ok {
						prop.Description = desc
					}
				}
				schema.Properties[name] = prop
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toGeminiContents(opts ChatOptions) []*genai.Content {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{{Text: strings.TrimSpace(opts.Prompt)}}, genai.RoleUser),
	}
	for _, m := range opts.History {
		switch m.Kind {
		case models.MessageAgent:
			if trimmed := strings.TrimSpace(m.Content); trimmed != "" {
				contents = append(contents, genai.NewContentFromParts([]*genai.Part{{Text: trimmed}}, genai.RoleModel))
			}
		case models.MessageFeedback:
			text := m.Result.String()
			if text == "" {
				text = "no output"
			}
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{{Text: text}}, genai.RoleUser))
		}
	}
	return contents
}

func (c *GoogleClient) Chat(ctx context.Context, opts ChatOptions) (ChatResponse, error) {
	if err := c.wait(ctx); err != nil {
		return ChatResponse{}, err
	}

	cfg := &genai.GenerateContentConfig{Tools: toGeminiTools(opts.Tools)}
	if opts.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.TrimSpace(opts.SystemPrompt)}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, toGeminiContents(opts), cfg)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("google chat: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ChatResponse{}, fmt.Errorf("google chat: no candidates")
	}

	var content strings.Builder
	var invs []models.Invocation
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			content.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args := make(map[string]string, len(part.FunctionCall.Args))
			for k, v := range part.FunctionCall.Args {
				if s, ok := v.(string); ok {
					args[k] = s
					continue
				}
				encoded, _ := json.Marshal(v)
				args[k] = string(encoded)
			}
			invs = append(invs, serialize.InvocationFromToolCall(part.FunctionCall.Name, args))
		}
	}

	out := ChatResponse{Content: content.String(), ToolCalls: invs}
	if resp.UsageMetadata != nil {
		out.Usage = &models.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func (c *GoogleClient) CheckSupportedFeatures(ctx context.Context) (SupportedFeatures, error) {
	if err := c.wait(ctx); err != nil {
		return DefaultFeatures(), err
	}

	cfg := &genai.GenerateContentConfig{
		Tools: toGeminiTools([]models.ToolDef{{
			Name:        "test",
			Description: "This is a test function.",
			Parameters: map[string]any{
				"type":       "object",
				"required":   []string{},
				"properties": map[string]any{},
			},
		}}),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{{Text: "Execute the test function."}}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return DefaultFeatures(), nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil && part.FunctionCall.Name == "test" {
			return SupportedFeatures{SystemPrompt: true, Tools: true}, nil
		}
	}
	return DefaultFeatures(), nil
}

func (c *GoogleClient) CheckRateLimit(ctx context.Context, errText string) bool {
	return c.checkRateLimit(ctx, errText)
}
