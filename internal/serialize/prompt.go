package serialize

import (
	"fmt"
	"strings"

	"github.com/nerverun/nerve/internal/state"
)

// actionsInstructions precedes the action catalog in the system prompt when
// the model has no native tool calling and must emit the textual protocol.
const actionsInstructions = `To execute actions, use the XML syntax shown below. You can execute multiple actions per response. Anything outside action tags is ignored. Do not invent actions that are not listed.`

// ActionsForNamespaces renders the markdown catalog of every action in the
// given namespaces, one section per namespace, each action as its
// description followed by its usage example in backticks.
func ActionsForNamespaces(namespaces []state.Namespace) string {
	var b strings.Builder
	for _, ns := range namespaces {
		b.WriteString("## " + ns.Name + "\n\n")
		if ns.Description != "" {
			b.WriteString(ns.Description + "\n\n")
		}
		for _, a := range ns.Actions {
			b.WriteString(a.Description + " `" + SerializeAction(a) + "`\n\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// SystemPrompt assembles the per-step system prompt: the task's own system
// prompt, the serialized storages in fixed type order, the step budget
// sentence, the guidance list, and (only when native tools are disabled) the
// full action catalog preceded by usage instructions.
func SystemPrompt(s *state.State, taskSystemPrompt string, guidance []string) string {
	var storages []string
	for _, st := range s.Storages() {
		if rendered := SerializeStorage(st); rendered != "" {
			storages = append(storages, rendered)
		}
	}

	metrics := s.Metrics()
	var iterations string
	if metrics.MaxSteps > 0 {
		iterations = fmt.Sprintf(
			"You are currently at step %d of a maximum of %d.",
			metrics.CurrentStep+1,
			metrics.MaxSteps,
		)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(taskSystemPrompt))
	b.WriteString("\n")

	if len(storages) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(storages, "\n\n"))
		b.WriteString("\n")
	}

	if iterations != "" {
		b.WriteString("\n" + iterations + "\n")
	}

	if len(guidance) > 0 {
		b.WriteString("\n## Guidance\n\n")
		for _, g := range guidance {
			b.WriteString("- " + g + "\n")
		}
	}

	if !s.UseNativeToolsFormat() {
		b.WriteString("\n" + actionsInstructions + "\n\n")
		b.WriteString(ActionsForNamespaces(s.Namespaces()))
		b.WriteString("\n")
	}

	return b.String()
}
