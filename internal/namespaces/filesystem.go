package namespaces

import (
	"os"

	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/internal/tools/files"
	"github.com/nerverun/nerve/pkg/models"
)

// Filesystem exposes read/write/list access to files inside the task's
// workspace. Paths are resolved against the working directory and may not
// escape it.
func Filesystem() state.Namespace {
	resolver := files.Resolver{}
	return state.Namespace{
		Name:        "Filesystem",
		Description: "You can use these actions to interact with the files in your workspace.",
		Actions: []state.Action{
			{
				Name:           "read-folder",
				Description:    "Use this action to list the contents of a folder.",
				ExamplePayload: strptr("/path/to/folder"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					path, err := resolver.Resolve(*payload)
					if err != nil {
						return nil, err
					}
					listing, err := files.DescribeDir(path)
					if err != nil {
						return nil, err
					}
					out := models.Text(listing)
					return &out, nil
				},
			},
			{
				Name:           "read-file",
				Description:    "Use this action to read the contents of a file.",
				ExamplePayload: strptr("/path/to/file.txt"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					path, err := resolver.Resolve(*payload)
					if err != nil {
						return nil, err
					}
					data, err := os.ReadFile(path)
					if err != nil {
						return nil, err
					}
					out := models.Text(string(data))
					return &out, nil
				},
			},
			{
				Name:              "write-file",
				Description:       "Use this action to write text to a file, replacing its contents.",
				ExamplePayload:    strptr("the file contents"),
				ExampleAttributes: map[string]string{"path": "/path/to/file.txt"},
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					path, err := resolver.Resolve(attrs["path"])
					if err != nil {
						return nil, err
					}
					if err := os.WriteFile(path, []byte(*payload), 0o644); err != nil {
						return nil, err
					}
					out := models.Text("file written")
					return &out, nil
				},
			},
		},
	}
}
