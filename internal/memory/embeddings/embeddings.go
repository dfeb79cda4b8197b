// Package embeddings defines the embedding surface the knowledge base and
// the --embedder flag are built on, with one provider per backend that
// exposes an embeddings endpoint.
package embeddings

import "context"

// Provider produces vector embeddings for text.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string
}
