package models

import "time"

// EventType discriminates the closed set of events the agent loop publishes
// to the bus. Kept as a string enum (not an interface) so a single Event
// struct with optional fields can carry every variant.
type EventType string

const (
	EventTaskStarted         EventType = "task_started"
	EventSleeping            EventType = "sleeping"
	EventMetricsUpdate       EventType = "metrics_update"
	EventStateUpdate         EventType = "state_update"
	EventThinking            EventType = "thinking"
	EventEmptyResponse       EventType = "empty_response"
	EventTextResponse        EventType = "text_response"
	EventInvalidAction       EventType = "invalid_action"
	EventActionTimeout       EventType = "action_timeout"
	EventActionExecuting     EventType = "action_executing"
	EventActionExecuted      EventType = "action_executed"
	EventTaskComplete        EventType = "task_complete"
	EventStorageUpdate       EventType = "storage_update"
	EventControlStateChanged EventType = "control_state_changed"
	EventWorkflowStarted     EventType = "workflow_started"
	EventWorkflowCompleted   EventType = "workflow_completed"
)

// Event is one entry on the event bus. Only the fields relevant to Type are
// populated; the rest are left zero. A tagged struct rather than an
// interface keeps the JSON event stream a single flat shape.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // unix epoch seconds

	Seconds int `json:"seconds,omitempty"` // Sleeping

	Metrics *Metrics `json:"metrics,omitempty"` // MetricsUpdate

	State *StateSnapshot `json:"state,omitempty"` // StateUpdate

	Text string `json:"text,omitempty"` // Thinking, TextResponse

	ToolCall *Invocation `json:"tool_call,omitempty"` // InvalidAction, ActionTimeout, ActionExecuting, ActionExecuted

	Error string `json:"error,omitempty"` // InvalidAction, ActionExecuted

	Result *ToolOutput `json:"result,omitempty"` // ActionExecuted

	Elapsed time.Duration `json:"elapsed,omitempty"` // ActionTimeout, ActionExecuted

	CompleteTask bool `json:"complete_task,omitempty"` // ActionExecuted

	Impossible bool    `json:"impossible,omitempty"` // TaskComplete
	Reason     *string `json:"reason,omitempty"`     // TaskComplete

	Storage *StorageUpdate `json:"storage,omitempty"` // StorageUpdate

	ControlState string `json:"control_state,omitempty"` // ControlStateChanged

	Workflow string `json:"workflow,omitempty"` // WorkflowStarted/WorkflowCompleted
}

// StorageUpdate mirrors a single storage mutation; every mutation publishes
// exactly one. Defined here (rather than in internal/state) so the event
// bus package doesn't need to import state, which in turn depends on
// models.
type StorageUpdate struct {
	StorageName string  `json:"storage_name"`
	StorageType string  `json:"storage_type"`
	Key         string  `json:"key"`
	Prev        *string `json:"prev,omitempty"`
	New         *string `json:"new,omitempty"`
}

// StateSnapshot is the read-only copy of agent state published with a
// StateUpdate event. It is deliberately flat and value-typed (no pointers
// into live storages) so a slow subscriber can't observe a half-mutated
// state and can't mutate the original by holding onto it.
type StateSnapshot struct {
	Metrics  Metrics                    `json:"metrics"`
	Storages map[string][]SnapshotEntry `json:"storages"`
	Complete bool                       `json:"complete"`
}

// SnapshotEntry is one key/value pair inside a StateSnapshot's storage view.
type SnapshotEntry struct {
	Key      string `json:"key"`
	Data     string `json:"data"`
	Complete bool   `json:"complete,omitempty"`
}

// NewEvent stamps the current time onto a partially-built Event. Timestamp
// is passed in rather than computed here (via time.Now().Unix()) so callers
// that need determinism in tests can stamp a fixed clock.
func NewEvent(typ EventType, unixSeconds int64) Event {
	return Event{Type: typ, Timestamp: unixSeconds}
}
