// Package rag builds the optional per-task knowledge base: source files
// are parsed, chunked, embedded and loaded into an in-memory vector store
// the Knowledge namespace queries.
package rag

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"os"

	"github.com/nerverun/nerve/internal/backoff"
	"github.com/nerverun/nerve/internal/rag/chunker"
	"github.com/nerverun/nerve/internal/rag/parser"
	"github.com/nerverun/nerve/internal/rag/store"
	"github.com/nerverun/nerve/pkg/models"
)

// Embedder is the minimal embedding surface indexing needs; satisfied by
// the providers' embedding clients.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index walks sourcePath, parses and chunks every supported file, embeds
// each chunk, and returns the populated store.
func Index(ctx context.Context, embedder Embedder, sourcePath string, chunkSize int) (*store.Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag indexing requires an embedder, pass one with --embedder")
	}

	cfg := chunker.DefaultConfig()
	if chunkSize > 0 {
		cfg.ChunkSize = chunkSize
	}

	st := store.New()
	err := filepath.WalkDir(sourcePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !parser.Supported(path) {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		doc := models.Document{
			Name:    d.Name(),
			Path:    path,
			Content: parser.Parse(path, string(raw)),
		}

		pieces := chunker.Split(doc.Content, cfg)
		chunks := make([]models.DocumentChunk, 0, len(pieces))
		for i, piece := range pieces {
			piece := piece
			embedding, err := backoff.Retry(ctx, backoff.Default(), 3, func() ([]float32, error) {
				return embedder.Embed(ctx, piece)
			})
			if err != nil {
				return fmt.Errorf("embedding %s chunk %d: %w", path, i, err)
			}
			chunks = append(chunks, models.DocumentChunk{
				Document:  doc.Name,
				Index:     i,
				Content:   piece,
				Embedding: embedding,
			})
		}

		slog.Debug("indexed document", "path", path, "chunks", len(chunks))
		return st.AddDocument(doc, chunks)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("knowledge base ready", "documents", st.Documents(), "chunks", st.Len())
	return st, nil
}
