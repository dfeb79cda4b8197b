package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerverun/nerve/pkg/models"
)

// History is the ordered record of every step executed so far.
type History struct {
	executions []models.Execution
}

func (h *History) Add(e models.Execution) {
	h.executions = append(h.executions, e)
}

func (h *History) Executions() []models.Execution {
	return h.executions
}

// ToChatHistory flattens the last max executions (0 means unlimited) into
// agent/feedback message pairs, the simple suffix-truncation view used
// before conversation-window compression is applied.
func (h *History) ToChatHistory(max int) []models.Message {
	execs := h.executions
	if max > 0 && len(execs) > max {
		execs = execs[len(execs)-max:]
	}
	var out []models.Message
	for _, e := range execs {
		out = append(out, e.ToMessages()...)
	}
	return out
}

// ConversationWindow selects how much of the running conversation is sent to
// the provider on each step.
type ConversationWindow struct {
	kind string // "full", "lastn", "summary"
	n    int
}

var (
	WindowFull    = ConversationWindow{kind: "full"}
	WindowSummary = ConversationWindow{kind: "summary"}
)

func WindowLastN(n int) ConversationWindow {
	return ConversationWindow{kind: "lastn", n: n}
}

func (w ConversationWindow) String() string {
	switch w.kind {
	case "full":
		return "full"
	case "summary":
		return "summary"
	default:
		return strconv.Itoa(w.n)
	}
}

// ParseWindow parses the --window flag value: "full", "summary" (case
// insensitive), or an integer >= 2.
func ParseWindow(v string) (ConversationWindow, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "full":
		return WindowFull, nil
	case "summary":
		return WindowSummary, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return ConversationWindow{}, fmt.Errorf("invalid window %q: %w", v, err)
	}
	if n < 2 {
		return ConversationWindow{}, fmt.Errorf("window size cannot be less than 2")
	}
	return WindowLastN(n), nil
}

// removedOutput is the placeholder text that replaces a stale feedback
// result once it has been summarized away.
const removedOutput = "<output removed>"

// ChatHistory applies a ConversationWindow to a full message list, producing
// the slice that actually gets sent to the provider this step.
type ChatHistory struct {
	Messages []models.Message
	Window   ConversationWindow
}

// CreateChatHistory builds a ChatHistory view per the selected window
// strategy. Full clones everything; LastN keeps the last n messages (or all,
// if fewer than n exist); Summary finds the last Feedback message and
// compresses every Feedback message before it down to a short placeholder,
// only when doing so actually shortens it.
func CreateChatHistory(conversation []models.Message, window ConversationWindow) ChatHistory {
	switch window.kind {
	case "lastn":
		n := window.n
		if n >= len(conversation) {
			return ChatHistory{Messages: append([]models.Message(nil), conversation...), Window: window}
		}
		return ChatHistory{Messages: append([]models.Message(nil), conversation[len(conversation)-n:]...), Window: window}
	case "summary":
		lastFeedbackIdx := 0
		for i := len(conversation) - 1; i >= 0; i-- {
			if conversation[i].Kind == models.MessageFeedback {
				lastFeedbackIdx = i
				break
			}
		}
		out := make([]models.Message, 0, len(conversation))
		for i, m := range conversation {
			if i >= lastFeedbackIdx || m.Kind != models.MessageFeedback {
				out = append(out, m)
				continue
			}
			if len(removedOutput) < len(m.Result.String()) {
				m.Result = models.Text(removedOutput)
			}
			out = append(out, m)
		}
		return ChatHistory{Messages: out, Window: window}
	default:
		return ChatHistory{Messages: append([]models.Message(nil), conversation...), Window: window}
	}
}
