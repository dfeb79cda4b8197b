package namespaces

import (
	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

// GoalStorage is the current/previous pair tracking the active objective.
// Exported so task setup can seed it with the task prompt.
const GoalStorage = "goal"

// Goal lets the model restate its objective as it narrows the task down;
// both the current and the previous goal stay visible in the prompt.
func Goal() state.Namespace {
	return state.Namespace{
		Name:        "Goal",
		Description: "When a task is general purpose, use these actions to keep track of what you are currently trying to achieve.",
		Default:     true,
		Storages:    []state.Descriptor{state.PreviousCurrent(GoalStorage)},
		Actions: []state.Action{
			{
				Name:           "update-goal",
				Description:    "Use this action to set a new current goal.",
				ExamplePayload: strptr("your new goal"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(GoalStorage)
					if err != nil {
						return nil, err
					}
					if err := st.SetCurrent(*payload); err != nil {
						return nil, err
					}
					out := models.Text("goal updated")
					return &out, nil
				},
			},
		},
	}
}
