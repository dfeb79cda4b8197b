package state

import (
	"time"

	"github.com/nerverun/nerve/pkg/models"
)

// Action is one tool a namespace exposes to the model. Run is dependency
// injected by the namespace constructor (closure over whatever external
// capability the action wraps — a shell Manager, an http.Client, the RAG
// store) so this package never imports namespace implementations and the
// storage/state/events dependency chain stays acyclic.
type Action struct {
	Name        string
	Description string

	// ExamplePayload, if non-nil, means this action accepts a text payload
	// and the value is shown to the model as a usage example.
	ExamplePayload *string

	// ExampleAttributes, if non-nil, means this action accepts named
	// attributes and the map is shown to the model as a usage example.
	ExampleAttributes map[string]string

	// RequiredVariables names task variables that must be resolved before
	// this action's namespace can be loaded.
	RequiredVariables []string

	// Timeout bounds dispatch of this action; zero means no timeout.
	Timeout time.Duration

	// RequiresUserConfirmation gates dispatch behind an interactive prompt.
	RequiresUserConfirmation bool

	// Run executes the action against live state. Returning a nil
	// *models.ToolOutput with a nil error means "no output to report".
	Run func(s *State, attrs map[string]string, payload *string) (*models.ToolOutput, error)
}

// HasPayload reports whether this action declares an example payload.
func (a Action) HasPayload() bool { return a.ExamplePayload != nil }

// HasAttributes reports whether this action declares example attributes.
func (a Action) HasAttributes() bool { return a.ExampleAttributes != nil }

// Namespace groups related actions and the storages they operate on.
// Namespaces marked Default are the ones a task's wildcard `using: ['*']`
// enables.
type Namespace struct {
	Name        string
	Description string
	Default     bool
	Actions     []Action
	Storages    []Descriptor
}

// FindAction returns the action named name, or ok=false.
func (n Namespace) FindAction(name string) (Action, bool) {
	for _, a := range n.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}
