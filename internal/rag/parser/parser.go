// Package parser extracts plain text from the source files a task's
// knowledge base is built from. Markdown gets its frontmatter and markup
// stripped; everything else is treated as plain text.
package parser

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Supported reports whether a file can be indexed.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		return true
	default:
		return false
	}
}

// Parse extracts indexable text from a file's raw contents, dispatching on
// the extension.
func Parse(path, raw string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return parseMarkdown(raw)
	default:
		return strings.TrimSpace(raw)
	}
}

var (
	codeFenceRE = regexp.MustCompile("(?m)^```[^\n]*$")
	headingRE   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	linkRE      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	emphasisRE  = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
)

// parseMarkdown strips YAML frontmatter and the markup that would pollute
// embeddings, keeping the readable text.
func parseMarkdown(raw string) string {
	content := stripFrontmatter(raw)
	content = codeFenceRE.ReplaceAllString(content, "")
	content = headingRE.ReplaceAllString(content, "")
	content = linkRE.ReplaceAllString(content, "$1")
	content = emphasisRE.ReplaceAllString(content, "$2")
	return strings.TrimSpace(content)
}

func stripFrontmatter(raw string) string {
	if !strings.HasPrefix(raw, "---\n") {
		return raw
	}
	rest := raw[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return raw
	}
	rest = rest[end+4:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		return rest[nl+1:]
	}
	return ""
}
