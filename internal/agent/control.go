package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

// ErrStopped reports that the operator stopped the run.
var ErrStopped = errors.New("stopped by operator")

// ControlState is the externally drivable run state.
type ControlState int

const (
	ControlRunning ControlState = iota
	ControlPaused
	ControlStopped
)

func (s ControlState) String() string {
	switch s {
	case ControlRunning:
		return "running"
	case ControlPaused:
		return "paused"
	case ControlStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// pausePollInterval is how often a paused loop re-observes the control.
const pausePollInterval = 200 * time.Millisecond

// Control is the play/pause/stop handle shared between the driver and
// external UIs. The loop observes it before each step; transitions emit
// ControlStateChanged.
type Control struct {
	mu     sync.Mutex
	state  ControlState
	events state.EventSink
	clock  func() time.Time
}

// NewControl creates a control in the Running state. events may be nil.
func NewControl(events state.EventSink, clock func() time.Time) *Control {
	if events == nil {
		events = state.NopSink{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Control{events: events, clock: clock}
}

// State returns the current control state.
func (c *Control) State() ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Control) transition(next ControlState) {
	c.mu.Lock()
	if c.state == next || c.state == ControlStopped {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()

	c.events.Emit(models.Event{
		Type:         models.EventControlStateChanged,
		Timestamp:    c.clock().Unix(),
		ControlState: next.String(),
	})
}

// Pause suspends the loop before its next step.
func (c *Control) Pause() { c.transition(ControlPaused) }

// Resume lets a paused loop continue.
func (c *Control) Resume() { c.transition(ControlRunning) }

// Stop terminates the loop at the next safe point. Terminal: a stopped
// control cannot be resumed.
func (c *Control) Stop() { c.transition(ControlStopped) }

// WaitIfPaused blocks while the control is Paused, returning ErrStopped if
// the run was stopped and nil once it may proceed.
func (c *Control) WaitIfPaused(ctx context.Context) error {
	for {
		switch c.State() {
		case ControlRunning:
			return nil
		case ControlStopped:
			return ErrStopped
		case ControlPaused:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pausePollInterval):
			}
		}
	}
}
