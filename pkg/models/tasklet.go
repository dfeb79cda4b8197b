package models

import (
	"fmt"
	"sort"
	"strings"
)

// MessageKind discriminates the two message shapes a tasklet conversation is
// built from. Kept as an explicit discriminant rather than an interface so
// history windowing can pattern-match without a type switch per element.
type MessageKind string

const (
	MessageAgent    MessageKind = "agent"
	MessageFeedback MessageKind = "feedback"
)

// ToolOutput is the result of running an invocation: either plain text or an
// image (base64 data plus mime type). Kept as a distinct type (not a bare
// string) so serialization call sites can't accidentally swap a result for an
// error.
type ToolOutput struct {
	Text      string
	ImageData string
	MimeType  string
}

func Text(s string) ToolOutput { return ToolOutput{Text: s} }

func Image(data, mimeType string) ToolOutput {
	return ToolOutput{ImageData: data, MimeType: mimeType}
}

// IsImage reports whether this output carries image data instead of text.
func (o ToolOutput) IsImage() bool { return o.ImageData != "" }

func (o ToolOutput) String() string {
	if o.IsImage() {
		return "<image " + o.MimeType + ">"
	}
	return o.Text
}

// Invocation is a single parsed action request: the action name, its
// attributes, and an optional payload.
type Invocation struct {
	Action     string
	Attributes map[string]string
	Payload    *string
}

// AsXML renders the invocation back to its textual tag form, used when
// persisting an executed step to history and to snapshot files. Attributes
// are rendered in sorted key order so the same call always serializes the
// same way.
func (inv Invocation) AsXML() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(inv.Action)
	keys := make([]string, 0, len(inv.Attributes))
	for k := range inv.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%q", k, inv.Attributes[k])
	}
	if inv.Payload == nil {
		b.WriteString("/>")
		return b.String()
	}
	b.WriteString(">")
	b.WriteString(*inv.Payload)
	b.WriteString("</")
	b.WriteString(inv.Action)
	b.WriteString(">")
	return b.String()
}

// Message is one entry in a conversation sent to a provider. Agent messages
// carry the model's own text and, if a native tool call was used, the
// structured call alongside it. Feedback messages carry the executed tool's
// result back for the next turn.
type Message struct {
	Kind     MessageKind
	Content  string
	ToolCall *Invocation
	Result   ToolOutput
}

func AgentMessage(content string, call *Invocation) Message {
	return Message{Kind: MessageAgent, Content: content, ToolCall: call}
}

func FeedbackMessage(call *Invocation, result ToolOutput) Message {
	return Message{Kind: MessageFeedback, ToolCall: call, Result: result}
}

// String renders the message the way snapshot files record it:
// "[agent]\n\n...\n" / "[feedback]\n\n...\n".
func (m Message) String() string {
	switch m.Kind {
	case MessageAgent:
		return fmt.Sprintf("[agent]\n\n%s\n", m.Content)
	case MessageFeedback:
		return fmt.Sprintf("[feedback]\n\n%s\n", m.Result.String())
	default:
		return ""
	}
}

// Execution is one step's outcome: what was invoked, and whichever of
// result/error was produced.
type Execution struct {
	Invocation Invocation
	Result     *ToolOutput
	Err        error
}

// ToMessages turns a single execution into the agent/feedback message pair
// that gets appended to conversation history.
func (e Execution) ToMessages() []Message {
	agent := AgentMessage(e.Invocation.AsXML(), &e.Invocation)
	var result ToolOutput
	switch {
	case e.Err != nil:
		result = Text(e.Err.Error())
	case e.Result != nil:
		result = *e.Result
	default:
		result = Text("")
	}
	feedback := FeedbackMessage(&e.Invocation, result)
	return []Message{agent, feedback}
}

// Usage reports token accounting for a single chat call, when the provider
// supplies it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Metrics accumulates step and error counters across an agent run. Field
// names mirror the taxonomy a state snapshot exposes.
type Metrics struct {
	MaxSteps          int
	CurrentStep       int
	ValidResponses    int
	EmptyResponses    int
	UnparsedResponses int
	UnknownActions    int
	InvalidActions    int
	ValidActions      int
	ErroredActions    int
	SuccessActions    int
	TimedoutActions   int

	Usage UsageTotals
}

// UsageTotals accumulates token accounting across chat calls: the last call's
// counts and the running totals.
type UsageTotals struct {
	LastInputTokens   int
	LastOutputTokens  int
	TotalInputTokens  int
	TotalOutputTokens int
}

// OnUsage folds one chat call's token usage into the totals.
func (m *Metrics) OnUsage(u Usage) {
	m.Usage.LastInputTokens = u.InputTokens
	m.Usage.LastOutputTokens = u.OutputTokens
	m.Usage.TotalInputTokens += u.InputTokens
	m.Usage.TotalOutputTokens += u.OutputTokens
}
