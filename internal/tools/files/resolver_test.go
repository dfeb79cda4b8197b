package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveInsideRoot(t *testing.T) {
	root := t.TempDir()
	r := Resolver{Root: root}

	got, err := r.Resolve("sub/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, root) {
		t.Errorf("resolved outside root: %q", got)
	}
}

func TestResolveRejectsEscape(t *testing.T) {
	r := Resolver{Root: t.TempDir()}
	for _, path := range []string{"../outside", "../../etc/passwd", "/etc/passwd"} {
		if _, err := r.Resolve(path); err == nil {
			t.Errorf("%q should be rejected", path)
		}
	}
}

func TestResolveEmpty(t *testing.T) {
	r := Resolver{Root: t.TempDir()}
	if _, err := r.Resolve("  "); err == nil {
		t.Error("empty path should be rejected")
	}
}

func TestDescribeDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := DescribeDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "a.txt") || !strings.Contains(out, "sub") {
		t.Errorf("listing missing entries: %q", out)
	}
	if !strings.Contains(out, "file") || !strings.Contains(out, "dir") {
		t.Errorf("listing missing types: %q", out)
	}
}
