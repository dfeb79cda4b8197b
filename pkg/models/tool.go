package models

// ToolDef is the provider-agnostic schema for one action exposed through a
// vendor's native function-calling interface. Parameters is a JSON-Schema
// shaped object ({"type": "object", "required": [...], "properties": {...}});
// each provider client translates it into its own wire format.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Same reports whether two invocations are the same call: equal action,
// equal attribute sets, equal payload. Used to deduplicate repeated calls
// within a single model response.
func (inv Invocation) Same(other Invocation) bool {
	if inv.Action != other.Action {
		return false
	}
	if (inv.Payload == nil) != (other.Payload == nil) {
		return false
	}
	if inv.Payload != nil && *inv.Payload != *other.Payload {
		return false
	}
	if len(inv.Attributes) != len(other.Attributes) {
		return false
	}
	for k, v := range inv.Attributes {
		if ov, ok := other.Attributes[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
