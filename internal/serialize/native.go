package serialize

import (
	"sort"

	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

// payloadProperty is the reserved property name that carries an action's
// free-text argument through a provider's native function-calling interface.
const payloadProperty = "payload"

// ToolDefForAction builds the provider-agnostic JSON-Schema object for one
// action. The payload slot becomes a required "payload" string property when
// the action declares an example payload; every declared attribute becomes a
// required string property of its own name.
func ToolDefForAction(a state.Action) models.ToolDef {
	required := []string{}
	properties := map[string]any{}

	if a.ExamplePayload != nil {
		required = append(required, payloadProperty)
		properties[payloadProperty] = map[string]any{
			"type":        "string",
			"description": "The main function argument, use this as a template: " + *a.ExamplePayload,
		}
	}

	if a.ExampleAttributes != nil {
		keys := make([]string, 0, len(a.ExampleAttributes))
		for k := range a.ExampleAttributes {
			keys = append(keys, k)
		}
		// deterministic required order keeps the schemas stable across steps
		sort.Strings(keys)
		for _, k := range keys {
			required = append(required, k)
			properties[k] = map[string]any{
				"type":        "string",
				"description": k,
			}
		}
	}

	return models.ToolDef{
		Name:        a.Name,
		Description: a.Description,
		Parameters: map[string]any{
			"type":       "object",
			"required":   required,
			"properties": properties,
		},
	}
}

// ToolDefsForNamespaces flattens every action of the given namespaces into
// native tool definitions, in catalog order.
func ToolDefsForNamespaces(namespaces []state.Namespace) []models.ToolDef {
	var defs []models.ToolDef
	for _, ns := range namespaces {
		for _, a := range ns.Actions {
			defs = append(defs, ToolDefForAction(a))
		}
	}
	return defs
}

// InvocationFromToolCall converts a native tool call's argument object back
// into an Invocation: the reserved "payload" key becomes the payload, every
// other key an attribute.
func InvocationFromToolCall(name string, args map[string]string) models.Invocation {
	inv := models.Invocation{Action: name}
	for k, v := range args {
		if k == payloadProperty {
			payload := v
			inv.Payload = &payload
			continue
		}
		if inv.Attributes == nil {
			inv.Attributes = map[string]string{}
		}
		inv.Attributes[k] = v
	}
	return inv
}
