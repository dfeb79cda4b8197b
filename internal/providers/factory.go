package providers

import (
	"fmt"
	"strconv"
	"strings"

	embedollama "github.com/nerverun/nerve/internal/memory/embeddings/ollama"
	embedopenai "github.com/nerverun/nerve/internal/memory/embeddings/openai"
)

// GeneratorURI is the parsed form of type://model[@host[:port]].
type GeneratorURI struct {
	Type          string
	Model         string
	Host          string
	Port          int
	ContextWindow int
}

func (u GeneratorURI) String() string {
	s := u.Type + "://" + u.Model
	if u.Host != "" {
		s += "@" + u.Host
		if u.Port > 0 {
			s += ":" + strconv.Itoa(u.Port)
		}
	}
	return s
}

// ParseGeneratorURI parses a generator reference. The host part is only
// meaningful for local providers (ollama, http); hosted vendors ignore it.
func ParseGeneratorURI(raw string) (GeneratorURI, error) {
	typ, rest, found := strings.Cut(raw, "://")
	if !found || typ == "" || rest == "" {
		return GeneratorURI{}, fmt.Errorf("%w: %q, expected type://model[@host[:port]]", ErrURIParse, raw)
	}

	uri := GeneratorURI{Type: strings.ToLower(typ)}

	model, hostport, hasHost := strings.Cut(rest, "@")
	if model == "" {
		return GeneratorURI{}, fmt.Errorf("%w: %q, missing model name", ErrURIParse, raw)
	}
	uri.Model = model

	if hasHost {
		host, portStr, hasPort := strings.Cut(hostport, ":")
		if host == "" {
			return GeneratorURI{}, fmt.Errorf("%w: %q, empty host", ErrURIParse, raw)
		}
		uri.Host = host
		if hasPort {
			port, err := strconv.Atoi(portStr)
			if err != nil || port <= 0 || port > 65535 {
				return GeneratorURI{}, fmt.Errorf("%w: %q, invalid port", ErrURIParse, raw)
			}
			uri.Port = port
		}
	}

	return uri, nil
}

// NewClient maps the closed set of generator types to concrete clients.
// Unknown types fail with ErrGeneratorUnknown.
func NewClient(uri GeneratorURI) (Client, error) {
	switch uri.Type {
	case "ollama":
		return NewOllamaClient(uri.Host, uri.Port, uri.Model, uri.ContextWindow)
	case "openai":
		return NewOpenAIClient(uri.Model)
	case "fireworks":
		return NewFireworksClient(uri.Model)
	case "hf":
		return NewHuggingfaceClient(uri.Model)
	case "groq":
		return NewGroqClient(uri.Model)
	case "novita":
		return NewNovitaClient(uri.Model)
	case "anthropic", "claude":
		return NewAnthropicClient(uri.Model)
	case "nim", "nvidia":
		return NewNvidiaNIMClient(uri.Model)
	case "deepseek":
		return NewDeepSeekClient(uri.Model)
	case "xai":
		return NewXAIClient(uri.Model)
	case "mistral":
		return NewMistralClient(uri.Model)
	case "google", "gemini":
		return NewGoogleClient(uri.Model)
	case "http":
		return NewHTTPClient(uri.Host, uri.Port, uri.Model)
	default:
		return nil, fmt.Errorf("%w: %q", ErrGeneratorUnknown, uri.Type)
	}
}

// NewEmbedder maps an embedder URI to a concrete embedding provider. The
// set is narrower than the chat set: only backends with an embeddings
// endpoint we integrate are accepted.
func NewEmbedder(uri GeneratorURI) (Embedder, error) {
	switch uri.Type {
	case "ollama":
		host := uri.Host
		if host == "" {
			host = "localhost"
		}
		port := uri.Port
		if port == 0 {
			port = ollamaDefaultPort
		}
		return embedollama.New(embedollama.Config{
			BaseURL: fmt.Sprintf("http://%s:%d", host, port),
			Model:   uri.Model,
		})
	case "openai":
		return embedopenai.New(embedopenai.Config{
			APIKey: apiKeyFromEnv("OPENAI_API_KEY"),
			Model:  uri.Model,
		})
	default:
		return nil, fmt.Errorf("%w: no embeddings support for %q", ErrGeneratorUnknown, uri.Type)
	}
}
