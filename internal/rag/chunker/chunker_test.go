package chunker

import (
	"strings"
	"testing"
)

func TestSplitEmpty(t *testing.T) {
	if got := Split("   \n ", Config{}); got != nil {
		t.Errorf("got %v", got)
	}
}

func TestSplitShortContentSingleChunk(t *testing.T) {
	got := Split("a short paragraph", Config{ChunkSize: 100})
	if len(got) != 1 || got[0] != "a short paragraph" {
		t.Errorf("got %v", got)
	}
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	para1 := strings.Repeat("alpha ", 20)
	para2 := strings.Repeat("beta ", 20)
	content := para1 + "\n\n" + para2

	got := Split(content, Config{ChunkSize: 130, ChunkOverlap: 0, MinChunkSize: 10})
	if len(got) != 2 {
		t.Fatalf("got %d chunks: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "alpha") || !strings.HasPrefix(got[1], "beta") {
		t.Errorf("split did not follow the paragraph break: %q", got)
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	content := strings.Repeat("word ", 500)
	cfg := Config{ChunkSize: 200, ChunkOverlap: 0, MinChunkSize: 10}
	for i, chunk := range Split(content, cfg) {
		if len(chunk) > cfg.ChunkSize {
			t.Errorf("chunk %d is %d chars, over the %d limit", i, len(chunk), cfg.ChunkSize)
		}
	}
}

func TestSplitOverlap(t *testing.T) {
	content := strings.Repeat("one two three four five. ", 40)
	got := Split(content, Config{ChunkSize: 200, ChunkOverlap: 50, MinChunkSize: 10})
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	// every chunk after the first starts with the tail of its predecessor
	for i := 1; i < len(got); i++ {
		head := got[i][:20]
		if !strings.Contains(got[i-1], strings.TrimSpace(head[:10])) {
			t.Errorf("chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestSplitHardFallback(t *testing.T) {
	// no separators at all: fall back to fixed-width slices
	content := strings.Repeat("x", 950)
	got := Split(content, Config{ChunkSize: 300, ChunkOverlap: 0, MinChunkSize: 10})
	if len(got) != 4 {
		t.Fatalf("got %d chunks", len(got))
	}
	for i := 0; i < 3; i++ {
		if len(got[i]) != 300 {
			t.Errorf("chunk %d length = %d", i, len(got[i]))
		}
	}
}
