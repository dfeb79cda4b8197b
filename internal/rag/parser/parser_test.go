package parser

import (
	"strings"
	"testing"
)

func TestSupported(t *testing.T) {
	for _, path := range []string{"notes.txt", "README.md", "doc.MARKDOWN"} {
		if !Supported(path) {
			t.Errorf("%s should be supported", path)
		}
	}
	for _, path := range []string{"image.png", "binary", "doc.pdf"} {
		if Supported(path) {
			t.Errorf("%s should not be supported", path)
		}
	}
}

func TestParsePlainText(t *testing.T) {
	if got := Parse("a.txt", "  hello world \n"); got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestParseMarkdown(t *testing.T) {
	raw := `---
title: Test
---

# Heading

Some *emphasised* text with a [link](https://example.com).

` + "```go\ncode here\n```" + `
`
	got := Parse("a.md", raw)
	if strings.Contains(got, "title: Test") {
		t.Errorf("frontmatter not stripped: %q", got)
	}
	if strings.Contains(got, "# ") || strings.Contains(got, "```") {
		t.Errorf("markup not stripped: %q", got)
	}
	for _, want := range []string{"Heading", "emphasised", "link", "code here"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "https://example.com") {
		t.Errorf("link target kept: %q", got)
	}
}

func TestParseMarkdownWithoutFrontmatter(t *testing.T) {
	if got := Parse("a.md", "just text"); got != "just text" {
		t.Errorf("got %q", got)
	}
}
