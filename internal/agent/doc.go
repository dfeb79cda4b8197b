package agent

import (
	"github.com/nerverun/nerve/internal/namespaces"
	"github.com/nerverun/nerve/internal/serialize"
)

// GenerateDoc renders the markdown catalog of every built-in namespace and
// action, independent of any task. Backs the --generate-doc CLI mode.
func GenerateDoc() string {
	return "# Namespaces\n\n" + serialize.ActionsForNamespaces(namespaces.All()) + "\n"
}
