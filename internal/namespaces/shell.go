package namespaces

import (
	"context"
	"fmt"

	"github.com/nerverun/nerve/internal/state"
	toolexec "github.com/nerverun/nerve/internal/tools/exec"
	"github.com/nerverun/nerve/pkg/models"
)

// Shell lets the model run arbitrary commands. Dispatch is gated behind an
// interactive operator confirmation.
func Shell() state.Namespace {
	runner := toolexec.NewRunner("")
	return state.Namespace{
		Name:        "Shell",
		Description: "You can use this action to execute shell commands on the host system.",
		Actions: []state.Action{
			{
				Name:                     "shell",
				Description:              "Use this action to execute a shell command and get its output.",
				ExamplePayload:           strptr("ls -la"),
				RequiresUserConfirmation: true,
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					res, err := runner.Shell(context.Background(), *payload)
					if err != nil {
						return nil, err
					}
					result := res.Stdout
					if res.Stderr != "" {
						result += fmt.Sprintf("\nSTDERR: %s\n", res.Stderr)
					}
					if res.ExitCode != 0 {
						result += fmt.Sprintf("\nEXIT CODE: %d", res.ExitCode)
					}
					out := models.Text(result)
					return &out, nil
				},
			},
		},
	}
}
