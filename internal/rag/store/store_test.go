package store

import (
	"context"
	"testing"

	"github.com/nerverun/nerve/pkg/models"
)

func doc(name string) models.Document {
	return models.Document{Name: name, Path: "/" + name, Content: name}
}

func chunk(docName, content string, embedding []float32) models.DocumentChunk {
	return models.DocumentChunk{Document: docName, Content: content, Embedding: embedding}
}

func TestAddAndSearch(t *testing.T) {
	s := New()
	err := s.AddDocument(doc("a.txt"), []models.DocumentChunk{
		chunk("a.txt", "about cats", []float32{1, 0, 0}),
		chunk("a.txt", "about dogs", []float32{0, 1, 0}),
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.AddDocument(doc("b.txt"), []models.DocumentChunk{
		chunk("b.txt", "about birds", []float32{0, 0, 1}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Documents() != 2 || s.Len() != 3 {
		t.Errorf("documents=%d chunks=%d", s.Documents(), s.Len())
	}

	got, err := s.Search(context.Background(), "cats", []float32{0.9, 0.1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "about cats" {
		t.Errorf("search results: %v", got)
	}
}

func TestAddDuplicateDocument(t *testing.T) {
	s := New()
	_ = s.AddDocument(doc("a.txt"), nil)
	if err := s.AddDocument(doc("a.txt"), nil); err == nil {
		t.Error("duplicate document should be rejected")
	}
}

func TestAddChunkWithoutEmbedding(t *testing.T) {
	s := New()
	err := s.AddDocument(doc("a.txt"), []models.DocumentChunk{
		{Document: "a.txt", Content: "no embedding"},
	})
	if err == nil {
		t.Error("chunk without embedding should be rejected")
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	s := New()
	_ = s.AddDocument(doc("a.txt"), []models.DocumentChunk{
		chunk("a.txt", "x", []float32{1, 0}),
	})
	if _, err := s.Search(context.Background(), "q", []float32{1, 0, 0}, 1); err == nil {
		t.Error("dimension mismatch should error")
	}
}

func TestSearchLimit(t *testing.T) {
	s := New()
	_ = s.AddDocument(doc("a.txt"), []models.DocumentChunk{
		chunk("a.txt", "one", []float32{1, 0}),
		chunk("a.txt", "two", []float32{0.9, 0.1}),
		chunk("a.txt", "three", []float32{0, 1}),
	})
	got, err := s.Search(context.Background(), "q", []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "one" {
		t.Errorf("got %v", got)
	}
}
