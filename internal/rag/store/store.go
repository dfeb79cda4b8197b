// Package store holds a task's embedded document chunks in memory and
// answers similarity queries over them. The runtime only ever indexes at
// startup and queries during the run, so there is no persistence layer.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nerverun/nerve/pkg/models"
)

// Store is an in-memory vector store over document chunks.
type Store struct {
	mu     sync.RWMutex
	chunks []models.DocumentChunk
	docs   map[string]models.Document
}

// New creates an empty store.
func New() *Store {
	return &Store{docs: map[string]models.Document{}}
}

// AddDocument records a document and its embedded chunks. Re-adding a
// document with the same name is an error.
func (s *Store) AddDocument(doc models.Document, chunks []models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.Name]; exists {
		return fmt.Errorf("document %q already indexed", doc.Name)
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("document %q chunk %d has no embedding", doc.Name, c.Index)
		}
	}
	s.docs[doc.Name] = doc
	s.chunks = append(s.chunks, chunks...)
	return nil
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Documents returns the number of indexed documents.
func (s *Store) Documents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Search returns the contents of the limit chunks most similar to the
// query embedding, best first. Satisfies the state engine's VectorStore
// contract; the query string itself is unused here since the caller
// already embedded it.
func (s *Store) Search(_ context.Context, _ string, embedding []float32, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	results := make([]scored, 0, len(s.chunks))
	for i, c := range s.chunks {
		score, err := cosineSimilarity(embedding, c.Embedding)
		if err != nil {
			return nil, err
		}
		results = append(results, scored{i, score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, s.chunks[r.idx].Content)
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding size mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
