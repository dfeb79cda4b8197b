package providers

import "fmt"

// Thin per-vendor constructors over the OpenAI-compatible base. Each pins
// the endpoint and credential variable; everything else is shared.

func NewOpenAIClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "openai",
		BaseURL:   "https://api.openai.com/v1",
		APIKeyEnv: "OPENAI_API_KEY",
		Model:     model,
	})
}

func NewFireworksClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "fireworks",
		BaseURL:   "https://api.fireworks.ai/inference/v1",
		APIKeyEnv: "LLM_FIREWORKS_KEY",
		Model:     model,
	})
}

func NewGroqClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "groq",
		BaseURL:   "https://api.groq.com/openai/v1",
		APIKeyEnv: "GROQ_API_KEY",
		Model:     model,
	})
}

func NewNovitaClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "novita",
		BaseURL:   "https://api.novita.ai/v3/openai",
		APIKeyEnv: "NOVITA_API_KEY",
		Model:     model,
	})
}

func NewNvidiaNIMClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "nim",
		BaseURL:   "https://integrate.api.nvidia.com/v1",
		APIKeyEnv: "NIM_API_KEY",
		Model:     model,
	})
}

func NewDeepSeekClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "deepseek",
		BaseURL:   "https://api.deepseek.com/v1",
		APIKeyEnv: "DEEPSEEK_API_KEY",
		Model:     model,
	})
}

func NewXAIClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "xai",
		BaseURL:   "https://api.x.ai/v1",
		APIKeyEnv: "XAI_API_KEY",
		Model:     model,
	})
}

func NewMistralClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "mistral",
		BaseURL:   "https://api.mistral.ai/v1",
		APIKeyEnv: "MISTRAL_API_KEY",
		Model:     model,
	})
}

func NewHuggingfaceClient(model string) (Client, error) {
	return NewOpenAICompatible(CompatConfig{
		Vendor:    "hf",
		BaseURL:   "https://router.huggingface.co/v1",
		APIKeyEnv: "HF_API_TOKEN",
		Model:     model,
	})
}

// NewHTTPClient targets any local OpenAI-compatible server by host and
// port, unauthenticated.
func NewHTTPClient(host string, port int, model string) (Client, error) {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 8000
	}
	return NewOpenAICompatible(CompatConfig{
		Vendor:  "http",
		BaseURL: fmt.Sprintf("http://%s:%d/v1", host, port),
		Model:   model,
	})
}
