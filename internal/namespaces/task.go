package namespaces

import (
	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

// Task holds the two terminal actions: declaring the task done or declaring
// it impossible. Both flip the state to complete; the agent loop stops at
// the end of the current step.
func Task() state.Namespace {
	return state.Namespace{
		Name:    "Task",
		Default: true,
		Actions: []state.Action{
			{
				Name:           "task-complete",
				Description:    "When your objective has been reached, use this action to set the task as complete.",
				ExamplePayload: strptr("a brief report about why the task is complete"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					s.OnComplete(false, *payload)
					return nil, nil
				},
			},
			{
				Name:           "task-impossible",
				Description:    "If you determine that the task is not possible, use this action to set it as impossible.",
				ExamplePayload: strptr("a brief report about why the task is impossible"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					s.OnComplete(true, *payload)
					return nil, nil
				},
			},
		},
	}
}
