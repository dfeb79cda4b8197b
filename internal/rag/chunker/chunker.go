// Package chunker splits document text into embeddable pieces using a
// recursive character strategy: larger semantic separators are tried first,
// falling back to smaller ones, with configurable overlap between adjacent
// chunks.
package chunker

import "strings"

// Config controls the splitter.
type Config struct {
	// ChunkSize is the target size of each chunk in characters.
	ChunkSize int

	// ChunkOverlap is how many trailing characters of one chunk reappear
	// at the head of the next.
	ChunkOverlap int

	// MinChunkSize merges any smaller trailing piece into its predecessor.
	MinChunkSize int
}

// DefaultConfig mirrors the sizes that work well for sentence-level
// embedding models.
func DefaultConfig() Config {
	return Config{ChunkSize: 1000, ChunkOverlap: 200, MinChunkSize: 100}
}

// separators is the split hierarchy, from paragraph breaks down to single
// characters.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " ", ""}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = def.ChunkOverlap
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 5
	}
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = def.MinChunkSize
	}
	return c
}

// Split chunks content per the config. Empty or whitespace-only content
// yields no chunks.
func Split(content string, cfg Config) []string {
	cfg = cfg.normalized()
	if strings.TrimSpace(content) == "" {
		return nil
	}

	pieces := split(content, cfg.ChunkSize, separators)
	merged := merge(pieces, cfg)

	out := make([]string, 0, len(merged))
	for _, m := range merged {
		if trimmed := strings.TrimSpace(m); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// split recursively divides text until every piece fits chunkSize.
func split(text string, chunkSize int, seps []string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, chunkSize)
	}

	sep := seps[0]
	if sep == "" {
		return hardSplit(text, chunkSize)
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		// separator absent, try the next smaller one
		return split(text, chunkSize, seps[1:])
	}

	var out []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
		}
	}
	for _, part := range parts {
		if current.Len()+len(part) > chunkSize {
			flush()
		}
		if len(part) > chunkSize {
			out = append(out, split(part, chunkSize, seps[1:])...)
			continue
		}
		current.WriteString(part)
	}
	flush()
	return out
}

func hardSplit(text string, chunkSize int) []string {
	var out []string
	for len(text) > chunkSize {
		out = append(out, text[:chunkSize])
		text = text[chunkSize:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// merge folds undersized trailing pieces into their predecessor and
// prepends each chunk with the tail of the previous one for overlap.
func merge(pieces []string, cfg Config) []string {
	var out []string
	for _, piece := range pieces {
		if len(out) > 0 && len(strings.TrimSpace(piece)) < cfg.MinChunkSize {
			out[len(out)-1] += piece
			continue
		}
		out = append(out, piece)
	}

	if cfg.ChunkOverlap <= 0 || len(out) < 2 {
		return out
	}
	overlapped := make([]string, len(out))
	overlapped[0] = out[0]
	for i := 1; i < len(out); i++ {
		prev := out[i-1]
		tail := prev
		if len(prev) > cfg.ChunkOverlap {
			tail = prev[len(prev)-cfg.ChunkOverlap:]
		}
		overlapped[i] = tail + out[i]
	}
	return overlapped
}
