package agent

import (
	"os"
	"strings"

	"github.com/nerverun/nerve/internal/providers"
	"github.com/nerverun/nerve/internal/serialize"
)

func writeSnapshotFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// saveIfNeeded writes the snapshot file configured via --save-to. With
// refresh set, the system prompt and history are recomputed against the
// current state (used after dispatches mutate it); otherwise the options
// built at the top of the step are persisted as-is. A full dump
// concatenates system prompt, user prompt and the whole conversation;
// the default is the system prompt alone.
func (a *Agent) saveIfNeeded(opts providers.ChatOptions, refresh bool) {
	if a.saveTo == "" {
		return
	}

	if refresh {
		systemPrompt := serialize.SystemPrompt(a.state, a.task.SystemPrompt, a.task.FullGuidance())
		if a.features.SystemPrompt {
			opts.SystemPrompt = systemPrompt
		} else {
			opts.Prompt = systemPrompt + "\n\n" + a.task.Prompt
		}
		opts.History = a.conversation()
	}

	var data string
	if a.fullDump {
		var rendered []string
		for _, m := range opts.History {
			rendered = append(rendered, m.String())
		}
		data = "[SYSTEM PROMPT]\n\n" + opts.SystemPrompt +
			"\n\n[PROMPT]\n\n" + opts.Prompt +
			"\n\n[CHAT]\n\n" + strings.Join(rendered, "\n")
	} else {
		data = opts.SystemPrompt
	}

	if err := a.writeFile(a.saveTo, []byte(data)); err != nil {
		// snapshot failures must not abort the run
		return
	}
}
