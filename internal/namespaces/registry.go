// Package namespaces defines the built-in tool namespaces the model can be
// given: memory, time, goal, planning, task, filesystem, rag, http and
// shell. Each builder returns a state.Namespace whose actions close over
// whatever external capability they wrap, so the state package never needs
// to know about shells or HTTP clients.
package namespaces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerverun/nerve/internal/state"
)

// ErrUnknownNamespace reports a `using:` entry that names no registered
// namespace. Fatal at task load.
var ErrUnknownNamespace = errors.New("no such namespace")

// registry lists every built-in namespace in catalog order. The key is what
// a task's `using:` list references; the namespace's own Name is what the
// model sees as a section header.
var registry = []struct {
	key   string
	build func() state.Namespace
}{
	{"memory", Memory},
	{"time", Time},
	{"goal", Goal},
	{"planning", Planning},
	{"task", Task},
	{"filesystem", Filesystem},
	{"rag", RAG},
	{"http", HTTP},
	{"shell", Shell},
}

// Defaults returns the namespaces a wildcard `using: ['*']` (or no using
// list at all) enables.
func Defaults() []state.Namespace {
	var out []state.Namespace
	for _, entry := range registry {
		if ns := entry.build(); ns.Default {
			out = append(out, ns)
		}
	}
	return out
}

// Resolve expands a task's `using:` list into concrete namespaces. A nil or
// empty list means "all defaults"; a "*" entry pulls in the defaults and
// may be combined with explicit extras. Unknown names fail.
func Resolve(using []string) ([]state.Namespace, error) {
	if len(using) == 0 {
		return Defaults(), nil
	}

	var out []state.Namespace
	seen := map[string]bool{}
	add := func(ns state.Namespace) {
		if !seen[ns.Name] {
			seen[ns.Name] = true
			out = append(out, ns)
		}
	}

	for _, name := range using {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "*" {
			for _, ns := range Defaults() {
				add(ns)
			}
			continue
		}
		found := false
		for _, entry := range registry {
			if entry.key == name {
				add(entry.build())
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
		}
	}
	return out, nil
}

// All returns every registered namespace, used by doc generation.
func All() []state.Namespace {
	out := make([]state.Namespace, 0, len(registry))
	for _, entry := range registry {
		out = append(out, entry.build())
	}
	return out
}

func strptr(s string) *string { return &s }
