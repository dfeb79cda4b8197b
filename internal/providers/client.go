// Package providers implements the uniform chat/embed interface over the
// heterogeneous LLM backends the runtime can talk to. One client per
// distinctive wire format (Anthropic, OpenAI, Google, Ollama) plus a shared
// OpenAI-compatible base parameterized per vendor; all share the Client
// contract and the rate-limit handling in ratelimit.go.
package providers

import (
	"context"
	"fmt"

	"github.com/nerverun/nerve/pkg/models"
)

// ChatOptions carries everything one chat call needs: the optional system
// prompt, the user prompt, the windowed history, and — when native tool
// calling is in use — the tool schemas to expose.
type ChatOptions struct {
	SystemPrompt string
	Prompt       string
	History      []models.Message
	Tools        []models.ToolDef
}

// ChatResponse is the provider-agnostic result of one chat call. When native
// tools are enabled ToolCalls comes from the provider; otherwise the caller
// produces it by parsing Content through the XML protocol.
type ChatResponse struct {
	Content   string
	ToolCalls []models.Invocation
	Usage     *models.Usage
}

// SupportedFeatures reports what a backend can do, probed once at startup.
type SupportedFeatures struct {
	SystemPrompt bool
	Tools        bool
}

// DefaultFeatures is what a backend supports until proven otherwise: system
// prompts yes, native tools no.
func DefaultFeatures() SupportedFeatures {
	return SupportedFeatures{SystemPrompt: true, Tools: false}
}

// Client is the uniform interface over LLM backends.
type Client interface {
	// Chat sends one conversation turn and returns the full response.
	Chat(ctx context.Context, opts ChatOptions) (ChatResponse, error)

	// CheckSupportedFeatures probes the backend once at startup, typically
	// by offering a "test" tool and seeing whether the model calls it.
	CheckSupportedFeatures(ctx context.Context) (SupportedFeatures, error)

	// CheckRateLimit inspects a chat error's text; if it describes a rate
	// limit (or a reset connection) the client sleeps the advertised
	// duration and returns true, telling the caller to retry.
	CheckRateLimit(ctx context.Context, errText string) bool
}

// Embedder produces a vector embedding for a piece of text. Satisfied by the
// embedding providers in internal/memory/embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// toolCallID generates the deterministic per-conversation tool-call ID for
// the n-th call, so providers that require IDs (OpenAI wire format) see
// globally unique ones within a single conversation.
func toolCallID(n int) string {
	return fmt.Sprintf("call_%d", n)
}

// toolCallArguments flattens an invocation into the JSON argument object of
// a native tool call: attributes plus the reserved "payload" key.
func toolCallArguments(inv models.Invocation) map[string]string {
	args := map[string]string{}
	for k, v := range inv.Attributes {
		args[k] = v
	}
	if inv.Payload != nil {
		args["payload"] = *inv.Payload
	}
	return args
}
