package namespaces

import (
	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

const planStorage = "plan"

// Planning gives the model an ordered, checkable plan: steps are added in
// order, marked complete as they're done, and the whole list is rendered
// into the prompt with each step's status.
func Planning() state.Namespace {
	return state.Namespace{
		Name:        "Planning",
		Description: "Use the planning actions to deconstruct a complex problem into smaller steps and track their completion.",
		Storages:    []state.Descriptor{state.Completion(planStorage)},
		Actions: []state.Action{
			{
				Name:           "add-plan-step",
				Description:    "Use this action to add a step to your plan.",
				ExamplePayload: strptr("complete the task"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(planStorage)
					if err != nil {
						return nil, err
					}
					if _, err := st.AddUntagged(*payload); err != nil {
						return nil, err
					}
					out := models.Text("step added to the plan")
					return &out, nil
				},
			},
			{
				Name:           "delete-plan-step",
				Description:    "Use this action to remove a step from your plan given its position.",
				ExamplePayload: strptr("2"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(planStorage)
					if err != nil {
						return nil, err
					}
					if err := st.DelUntagged(*payload); err != nil {
						return nil, err
					}
					out := models.Text("step removed from the plan")
					return &out, nil
				},
			},
			{
				Name:           "set-step-completed",
				Description:    "Use this action to mark a step of your plan as completed given its position.",
				ExamplePayload: strptr("2"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(planStorage)
					if err != nil {
						return nil, err
					}
					if err := st.SetComplete(*payload, true); err != nil {
						return nil, err
					}
					out := models.Text("step marked as completed")
					return &out, nil
				},
			},
			{
				Name:           "set-step-incomplete",
				Description:    "Use this action to mark a step of your plan as not completed given its position.",
				ExamplePayload: strptr("2"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(planStorage)
					if err != nil {
						return nil, err
					}
					if err := st.SetComplete(*payload, false); err != nil {
						return nil, err
					}
					out := models.Text("step marked as incomplete")
					return &out, nil
				},
			},
			{
				Name:        "clear-plan",
				Description: "Use this action to discard the whole plan and start over.",
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(planStorage)
					if err != nil {
						return nil, err
					}
					st.Clear()
					out := models.Text("plan cleared")
					return &out, nil
				},
			},
		},
	}
}
