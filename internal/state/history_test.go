package state

import (
	"strings"
	"testing"

	"github.com/nerverun/nerve/pkg/models"
)

func TestParseWindowFull(t *testing.T) {
	w, err := ParseWindow("full")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != WindowFull {
		t.Fatalf("expected full window, got %v", w)
	}
}

func TestParseWindowSummary(t *testing.T) {
	w, err := ParseWindow("Summary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != WindowSummary {
		t.Fatalf("expected summary window, got %v", w)
	}
}

func TestParseWindowCaseInsensitive(t *testing.T) {
	for _, v := range []string{"FULL", "full", "FuLl"} {
		if w, err := ParseWindow(v); err != nil || w != WindowFull {
			t.Fatalf("ParseWindow(%q) = %v, %v", v, w, err)
		}
	}
}

func TestParseWindowInvalid(t *testing.T) {
	if _, err := ParseWindow("1"); err == nil {
		t.Fatalf("expected error for window size < 2")
	}
	if _, err := ParseWindow("0"); err == nil {
		t.Fatalf("expected error for zero window")
	}
	if _, err := ParseWindow("-1"); err == nil {
		t.Fatalf("expected error for negative window")
	}
	if _, err := ParseWindow("nope"); err == nil {
		t.Fatalf("expected error for non-numeric window")
	}
}

func TestCreateChatHistoryLastN(t *testing.T) {
	conv := []models.Message{
		models.AgentMessage("a1", nil),
		models.FeedbackMessage(nil, models.Text("r1")),
		models.AgentMessage("a2", nil),
		models.FeedbackMessage(nil, models.Text("r2")),
	}
	ch := CreateChatHistory(conv, WindowLastN(2))
	if len(ch.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(ch.Messages))
	}
	if ch.Messages[0].Content != "a2" {
		t.Fatalf("expected last-2 suffix, got %+v", ch.Messages)
	}
}

func TestCreateChatHistoryLastNShorterThanWindow(t *testing.T) {
	conv := []models.Message{models.AgentMessage("a1", nil)}
	ch := CreateChatHistory(conv, WindowLastN(5))
	if len(ch.Messages) != 1 {
		t.Fatalf("expected all messages kept, got %d", len(ch.Messages))
	}
}

func TestCreateChatHistorySummaryCompressesBeforeLastFeedback(t *testing.T) {
	longResult := strings.Repeat("x", 50)
	conv := []models.Message{
		models.FeedbackMessage(nil, models.Text(longResult)),
		models.AgentMessage("a2", nil),
		models.FeedbackMessage(nil, models.Text(longResult)),
	}
	ch := CreateChatHistory(conv, WindowSummary)
	if ch.Messages[0].Result.Text != removedOutput {
		t.Fatalf("expected first feedback compressed, got %q", ch.Messages[0].Result.Text)
	}
	if ch.Messages[2].Result.Text != longResult {
		t.Fatalf("expected last feedback (the selected index) left untouched, got %q", ch.Messages[2].Result.Text)
	}
}

// Summary windowing is idempotent: applying it to its own output is a
// no-op.
func TestCreateChatHistorySummaryIdempotent(t *testing.T) {
	longResult := strings.Repeat("y", 64)
	var conv []models.Message
	for i := 0; i < 6; i++ {
		conv = append(conv,
			models.AgentMessage("step", nil),
			models.FeedbackMessage(nil, models.Text(longResult)),
		)
	}

	once := CreateChatHistory(conv, WindowSummary).Messages
	twice := CreateChatHistory(once, WindowSummary).Messages

	if len(once) != len(twice) {
		t.Fatalf("length changed: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Kind != twice[i].Kind || once[i].Result.Text != twice[i].Result.Text {
			t.Fatalf("message %d changed on second application", i)
		}
	}
	// everything before the last feedback got compressed, the last kept
	if once[len(once)-1].Result.Text != longResult {
		t.Fatalf("last feedback was compressed")
	}
	if once[1].Result.Text != removedOutput {
		t.Fatalf("stale feedback was not compressed")
	}
}

func TestCreateChatHistorySummaryNoFeedback(t *testing.T) {
	conv := []models.Message{models.AgentMessage("a1", nil), models.AgentMessage("a2", nil)}
	ch := CreateChatHistory(conv, WindowSummary)
	if len(ch.Messages) != 2 {
		t.Fatalf("expected messages unchanged when no feedback present")
	}
}

func TestHistoryToChatHistoryTruncates(t *testing.T) {
	var h History
	for i := 0; i < 5; i++ {
		h.Add(models.Execution{Invocation: models.Invocation{Action: "noop"}, Result: ptr(models.Text("ok"))})
	}
	msgs := h.ToChatHistory(2)
	if len(msgs) != 4 {
		t.Fatalf("expected 2 executions * 2 messages = 4, got %d", len(msgs))
	}
}

func ptr[T any](v T) *T { return &v }
