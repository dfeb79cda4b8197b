// Package agent implements the per-step control loop: compose the prompt,
// call the provider, parse tool invocations, validate and dispatch them,
// record outcomes, publish events, and enforce the step budget.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerverun/nerve/internal/providers"
	"github.com/nerverun/nerve/internal/serialize"
	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/internal/tasklet"
	"github.com/nerverun/nerve/pkg/models"
)

var (
	// ErrUserDeclined reports a confirmation-gated action the operator
	// refused; the refusal is told back to the model.
	ErrUserDeclined = errors.New("user declined the execution of this action")

	// ErrToolTimeout reports a dispatch that exceeded the action's
	// declared timeout.
	ErrToolTimeout = errors.New("action timed out")
)

// unparsedFeedback is what the model is told when its response contained no
// parseable action.
const unparsedFeedback = "I could not parse any valid actions from your response, please correct it according to the instructions."

// emptyFeedback is what the model is told after an empty response.
const emptyFeedback = "Do not return empty responses."

// Confirmer decides whether a confirmation-gated action may run. The
// default asks the operator on stdin.
type Confirmer func(inv models.Invocation) bool

func defaultConfirmer(inv models.Invocation) bool {
	answer, err := tasklet.Input(fmt.Sprintf("\nexecute %s? [y/N] ", inv.AsXML()))
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// Config wires an Agent together.
type Config struct {
	Generator providers.Client
	Task      *tasklet.Tasklet
	State     *state.State
	Window    state.ConversationWindow
	Features  providers.SupportedFeatures

	// SaveTo, when set, receives a snapshot file each step; FullDump
	// switches it from system-prompt-only to the full transcript.
	SaveTo   string
	FullDump bool

	Control *Control
	Confirm Confirmer
	Clock   func() time.Time

	// WriteFile is the snapshot writer, replaceable in tests.
	WriteFile func(path string, data []byte) error
}

// Agent drives one task to completion.
type Agent struct {
	id        string
	generator providers.Client
	task      *tasklet.Tasklet
	state     *state.State
	window    state.ConversationWindow
	features  providers.SupportedFeatures
	saveTo    string
	fullDump  bool
	control   *Control
	confirm   Confirmer
	clock     func() time.Time
	writeFile func(path string, data []byte) error
}

// New builds an Agent. If the task enables the goal namespace, the current
// goal is seeded with the task prompt.
func New(cfg Config) (*Agent, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	if cfg.Task == nil || cfg.State == nil {
		return nil, fmt.Errorf("task and state are required")
	}
	if cfg.Control == nil {
		cfg.Control = NewControl(cfg.State.Events(), cfg.Clock)
	}
	if cfg.Confirm == nil {
		cfg.Confirm = defaultConfirmer
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.WriteFile == nil {
		cfg.WriteFile = writeSnapshotFile
	}

	a := &Agent{
		id:        uuid.NewString(),
		generator: cfg.Generator,
		task:      cfg.Task,
		state:     cfg.State,
		window:    cfg.Window,
		features:  cfg.Features,
		saveTo:    cfg.SaveTo,
		fullDump:  cfg.FullDump,
		control:   cfg.Control,
		confirm:   cfg.Confirm,
		clock:     cfg.Clock,
		writeFile: cfg.WriteFile,
	}

	if goal, err := a.state.GetStorage("goal"); err == nil && cfg.Task.Prompt != "" {
		if err := goal.SetCurrent(cfg.Task.Prompt); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Control returns the shared play/pause/stop handle.
func (a *Agent) Control() *Control { return a.control }

func (a *Agent) emit(e models.Event) {
	e.Timestamp = a.clock().Unix()
	a.state.Events().Emit(e)
}

// conversation flattens the recorded history into agent/feedback messages.
func (a *Agent) conversation() []models.Message {
	var out []models.Message
	for _, exec := range a.state.History() {
		out = append(out, exec.ToMessages()...)
	}
	return out
}

// chatOptions assembles the provider call for this step. When the backend
// has no system prompt support, the system prompt is folded into the user
// prompt instead.
func (a *Agent) chatOptions() providers.ChatOptions {
	systemPrompt := serialize.SystemPrompt(a.state, a.task.SystemPrompt, a.task.FullGuidance())
	userPrompt := a.task.Prompt
	if !a.features.SystemPrompt {
		userPrompt = systemPrompt + "\n\n" + userPrompt
		systemPrompt = ""
	}

	opts := providers.ChatOptions{
		SystemPrompt: systemPrompt,
		Prompt:       userPrompt,
		History:      state.CreateChatHistory(a.conversation(), a.window).Messages,
	}
	if a.state.UseNativeToolsFormat() {
		opts.Tools = serialize.ToolDefsForNamespaces(a.state.Namespaces())
	}
	return opts
}

// validate checks an invocation against its action's declared argument
// surface: payload present iff declared, attributes present iff declared,
// and every declared attribute supplied.
func (a *Agent) validate(inv models.Invocation, action state.Action) error {
	payloadRequired := action.HasPayload()
	attrsRequired := action.HasAttributes()
	hasPayload := inv.Payload != nil
	hasAttrs := inv.Attributes != nil

	switch {
	case payloadRequired && !hasPayload:
		return &state.InvalidToolCallError{Action: inv.Action, Reason: "payload required"}
	case attrsRequired && !hasAttrs:
		return &state.InvalidToolCallError{Action: inv.Action, Reason: "attributes required"}
	case !payloadRequired && hasPayload:
		return &state.InvalidToolCallError{Action: inv.Action, Reason: "no payload expected"}
	case !attrsRequired && hasAttrs:
		return &state.InvalidToolCallError{Action: inv.Action, Reason: "no attributes expected"}
	}

	if attrsRequired {
		for key := range action.ExampleAttributes {
			if _, ok := inv.Attributes[key]; !ok {
				return &state.InvalidToolCallError{Action: inv.Action, Reason: "missing attribute " + key}
			}
		}
	}
	return nil
}

// chat calls the provider, retrying while the error is rate-limit
// recoverable.
func (a *Agent) chat(ctx context.Context, opts providers.ChatOptions) (providers.ChatResponse, error) {
	for {
		resp, err := a.generator.Chat(ctx, opts)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return providers.ChatResponse{}, err
		}
		if !a.generator.CheckRateLimit(ctx, err.Error()) {
			return providers.ChatResponse{}, err
		}
		slog.Debug("retrying chat after rate limit", "agent", a.id)
	}
}

// Step performs one complete iteration of the loop.
func (a *Agent) Step(ctx context.Context) error {
	if err := a.state.OnStep(); err != nil {
		return err
	}

	opts := a.chatOptions()
	a.saveIfNeeded(opts, false)

	resp, err := a.chat(ctx, opts)
	if err != nil {
		return err
	}
	if resp.Usage != nil {
		a.state.RecordUsage(*resp.Usage)
	}

	content := strings.TrimSpace(resp.Content)
	invocations := resp.ToolCalls
	if len(invocations) == 0 {
		invocations = serialize.Parse(content)
	}

	if len(invocations) == 0 {
		if content == "" {
			slog.Warn("agent did not provide valid instructions: empty response")
			a.state.OnEmptyResponse()
			a.emit(models.Event{Type: models.EventEmptyResponse})
			a.state.AddUnparsed(content, errors.New(emptyFeedback))
		} else {
			slog.Warn("agent did not provide valid instructions", "response", content)
			a.state.OnUnparsedResponse()
			a.emit(models.Event{Type: models.EventTextResponse, Text: content})
			a.state.AddUnparsed(content, errors.New(unparsedFeedback))
		}
		return nil
	}

	a.state.OnValidResponse()
	if content != "" {
		a.emit(models.Event{Type: models.EventThinking, Text: content})
	}

	for i := range invocations {
		inv := invocations[i]
		a.dispatch(ctx, inv, opts)
		if a.state.IsComplete() {
			break
		}
	}

	a.emit(models.Event{Type: models.EventStateUpdate, State: snapshotPtr(a.state.Snapshot())})
	return nil
}

func snapshotPtr(s models.StateSnapshot) *models.StateSnapshot { return &s }

// dispatch validates and executes a single invocation, recording the
// outcome in history and on the event bus.
func (a *Agent) dispatch(ctx context.Context, inv models.Invocation, opts providers.ChatOptions) {
	action, err := a.state.GetAction(inv.Action)
	if err != nil {
		a.state.OnUnknownAction()
		nameErr := fmt.Errorf("'%s' is not a valid action name", inv.Action)
		a.state.AddError(inv, nameErr)
		a.emit(models.Event{Type: models.EventInvalidAction, ToolCall: &inv, Error: nameErr.Error()})
		return
	}

	if err := a.validate(inv, action); err != nil {
		a.state.OnInvalidAction()
		a.state.AddError(inv, err)
		a.emit(models.Event{Type: models.EventInvalidAction, ToolCall: &inv, Error: err.Error()})
		return
	}
	a.state.OnValidAction()

	if action.RequiresUserConfirmation && !a.confirm(inv) {
		a.state.AddError(inv, ErrUserDeclined)
		a.emit(models.Event{Type: models.EventActionExecuted, ToolCall: &inv, Error: ErrUserDeclined.Error()})
		return
	}

	a.emit(models.Event{Type: models.EventActionExecuting, ToolCall: &inv})

	completeBefore := a.state.IsComplete()
	start := a.clock()
	result, err := a.runWithTimeout(ctx, inv, action)
	elapsed := a.clock().Sub(start)

	if errors.Is(err, ErrToolTimeout) {
		a.state.OnTimedoutAction()
		a.state.AddError(inv, err)
		a.emit(models.Event{Type: models.EventActionTimeout, ToolCall: &inv, Elapsed: elapsed})
		a.saveIfNeeded(opts, true)
		return
	}

	completeTask := !completeBefore && a.state.IsComplete()
	event := models.Event{
		Type:         models.EventActionExecuted,
		ToolCall:     &inv,
		Elapsed:      elapsed,
		CompleteTask: completeTask,
	}
	if err != nil {
		a.state.AddError(inv, err)
		event.Error = err.Error()
	} else {
		var output models.ToolOutput
		if result != nil {
			output = *result
			event.Result = result
		}
		a.state.AddSuccess(inv, output)
	}
	a.emit(event)
	a.saveIfNeeded(opts, true)
}

// runWithTimeout races the action against its declared timeout. A tool
// that times out keeps running on its goroutine but its result is
// discarded; the loop proceeds to the next call.
func (a *Agent) runWithTimeout(ctx context.Context, inv models.Invocation, action state.Action) (*models.ToolOutput, error) {
	type outcome struct {
		result *models.ToolOutput
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := action.Run(a.state, inv.Attributes, inv.Payload)
		done <- outcome{result, err}
	}()

	if action.Timeout <= 0 {
		select {
		case o := <-done:
			return o.result, o.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	timer := time.NewTimer(action.Timeout)
	defer timer.Stop()
	select {
	case o := <-done:
		return o.result, o.err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrToolTimeout, action.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run drives steps until the task terminates, the step budget is
// exhausted, or the control is stopped. Budget exhaustion is a normal
// (non-success) terminal state, not an error.
func (a *Agent) Run(ctx context.Context) error {
	a.emit(models.Event{Type: models.EventTaskStarted})

	for !a.state.IsComplete() {
		if err := a.control.WaitIfPaused(ctx); err != nil {
			if errors.Is(err, ErrStopped) {
				slog.Info("run stopped by operator", "agent", a.id)
				return nil
			}
			return err
		}

		err := a.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, state.ErrStepBudgetExceeded):
			slog.Warn("maximum number of steps reached", "agent", a.id)
			return nil
		default:
			return err
		}
	}
	return nil
}
