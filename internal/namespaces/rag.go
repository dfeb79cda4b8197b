package namespaces

import (
	"context"
	"strings"

	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

// ragTopK bounds how many documents a single query returns to the model.
const ragTopK = 1

// RAG exposes the task's document store, when one is configured, as a
// search action. cmd/nerve appends it when the task declares a rag section;
// it is also registered by name, so `using: [rag]` enables it as well.
func RAG() state.Namespace {
	return state.Namespace{
		Name:        "Knowledge",
		Description: "Use this action to search for supporting information in the documents you have been given.",
		Actions: []state.Action{
			{
				Name:           "search",
				Description:    "Use this action to search the knowledge base with a natural language query.",
				ExamplePayload: strptr("what is the biggest city in the world?"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					docs, err := s.RAGQuery(context.Background(), *payload, ragTopK)
					if err != nil {
						return nil, err
					}
					if len(docs) == 0 {
						out := models.Text("no documents for this query")
						return &out, nil
					}
					out := models.Text("Here is some supporting information:\n\n" + strings.Join(docs, "\n"))
					return &out, nil
				},
			},
		},
	}
}
