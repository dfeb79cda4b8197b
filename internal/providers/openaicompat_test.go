package providers

import (
	"testing"

	"github.com/nerverun/nerve/pkg/models"

	openai "github.com/sashabaranov/go-openai"
)

func strptr(s string) *string { return &s }

func TestToOpenAIMessagesPlainHistory(t *testing.T) {
	opts := ChatOptions{
		SystemPrompt: "system here",
		Prompt:       "do the thing",
		History: []models.Message{
			models.AgentMessage("<do>x</do>", nil),
			models.FeedbackMessage(nil, models.Text("ok")),
		},
	}
	msgs := toOpenAIMessages(opts)
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem || msgs[0].Content != "system here" {
		t.Errorf("unexpected system message: %+v", msgs[0])
	}
	if msgs[1].Role != openai.ChatMessageRoleUser || msgs[1].Content != "do the thing" {
		t.Errorf("unexpected prompt message: %+v", msgs[1])
	}
	if msgs[2].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("unexpected history role: %+v", msgs[2])
	}
	if msgs[3].Role != openai.ChatMessageRoleUser || msgs[3].Content != "ok" {
		t.Errorf("unexpected feedback message: %+v", msgs[3])
	}
}

func TestToOpenAIMessagesToolCallIDsPairUp(t *testing.T) {
	call1 := models.Invocation{Action: "save-memory", Attributes: map[string]string{"key": "a"}, Payload: strptr("one")}
	call2 := models.Invocation{Action: "save-memory", Attributes: map[string]string{"key": "b"}, Payload: strptr("two")}
	opts := ChatOptions{
		Prompt: "p",
		History: []models.Message{
			models.AgentMessage("", &call1),
			models.FeedbackMessage(&call1, models.Text("saved a")),
			models.AgentMessage("", &call2),
			models.FeedbackMessage(&call2, models.Text("saved b")),
		},
	}
	msgs := toOpenAIMessages(opts)
	// prompt + 4 history entries
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want 5", len(msgs))
	}

	firstID := msgs[1].ToolCalls[0].ID
	secondID := msgs[3].ToolCalls[0].ID
	if firstID == secondID {
		t.Error("tool-call IDs must be unique within one conversation")
	}
	if msgs[2].Role != openai.ChatMessageRoleTool || msgs[2].ToolCallID != firstID {
		t.Errorf("feedback 1 not paired: %+v", msgs[2])
	}
	if msgs[4].Role != openai.ChatMessageRoleTool || msgs[4].ToolCallID != secondID {
		t.Errorf("feedback 2 not paired: %+v", msgs[4])
	}
}

func TestInvocationsFromToolCalls(t *testing.T) {
	calls := []openai.ToolCall{
		{
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      "save-memory",
				Arguments: `{"key":"note","payload":"hello"}`,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      "broken",
				Arguments: `not json`,
			},
		},
	}
	invs := invocationsFromToolCalls(calls)
	if len(invs) != 1 {
		t.Fatalf("got %d invocations, want 1 (malformed arguments skipped)", len(invs))
	}
	if invs[0].Action != "save-memory" || invs[0].Attributes["key"] != "note" || *invs[0].Payload != "hello" {
		t.Errorf("unexpected invocation: %+v", invs[0])
	}
}

func TestToolCallArgumentsFlattening(t *testing.T) {
	inv := models.Invocation{
		Action:     "do",
		Attributes: map[string]string{"key": "v"},
		Payload:    strptr("p"),
	}
	args := toolCallArguments(inv)
	if args["key"] != "v" || args["payload"] != "p" {
		t.Errorf("unexpected arguments: %+v", args)
	}
}
