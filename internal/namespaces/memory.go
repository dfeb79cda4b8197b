package namespaces

import (
	"fmt"

	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

const memoriesStorage = "memories"

// Memory gives the model a tagged key/value store that survives the
// conversation window: whatever it saves here is rendered back into every
// system prompt.
func Memory() state.Namespace {
	return state.Namespace{
		Name:        "Memory",
		Description: "You can use the memory actions to store and retrieve custom data across steps.",
		Default:     true,
		Storages:    []state.Descriptor{state.Tagged(memoriesStorage)},
		Actions: []state.Action{
			{
				Name:              "save-memory",
				Description:       "Use this action to store custom data under a key so you can reuse it in later steps.",
				ExamplePayload:    strptr("put here the custom data you want to keep for later"),
				ExampleAttributes: map[string]string{"key": "my-note"},
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(memoriesStorage)
					if err != nil {
						return nil, err
					}
					if err := st.AddTagged(attrs["key"], *payload); err != nil {
						return nil, err
					}
					out := models.Text("memory saved")
					return &out, nil
				},
			},
			{
				Name:              "delete-memory",
				Description:       "Use this action to remove a memory that is no longer needed.",
				ExampleAttributes: map[string]string{"key": "my-note"},
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(memoriesStorage)
					if err != nil {
						return nil, err
					}
					key := attrs["key"]
					if _, ok := st.GetTagged(key); !ok {
						return nil, fmt.Errorf("memory %q not found", key)
					}
					if err := st.DelTagged(key); err != nil {
						return nil, err
					}
					out := models.Text("memory deleted")
					return &out, nil
				},
			},
			{
				Name:              "recall-memory",
				Description:       "Use this action to read back a memory you previously saved.",
				ExampleAttributes: map[string]string{"key": "my-note"},
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(memoriesStorage)
					if err != nil {
						return nil, err
					}
					key := attrs["key"]
					data, ok := st.GetTagged(key)
					if !ok {
						return nil, fmt.Errorf("memory %q not found", key)
					}
					out := models.Text(data)
					return &out, nil
				},
			},
		},
	}
}
