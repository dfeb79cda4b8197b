package serialize

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nerverun/nerve/internal/state"
)

func TestToolDefForAction(t *testing.T) {
	a := state.Action{
		Name:              "save-memory",
		Description:       "Save data under a key.",
		ExamplePayload:    strptr("the data"),
		ExampleAttributes: map[string]string{"key": "my-note"},
	}
	def := ToolDefForAction(a)

	if def.Name != "save-memory" || def.Description != "Save data under a key." {
		t.Errorf("unexpected def header: %+v", def)
	}
	if def.Parameters["type"] != "object" {
		t.Errorf("type = %v", def.Parameters["type"])
	}
	required, ok := def.Parameters["required"].([]string)
	if !ok || len(required) != 2 || required[0] != "payload" || required[1] != "key" {
		t.Errorf("required = %v", def.Parameters["required"])
	}
	props := def.Parameters["properties"].(map[string]any)
	if _, ok := props["payload"]; !ok {
		t.Error("missing payload property")
	}
	if _, ok := props["key"]; !ok {
		t.Error("missing key property")
	}
}

func TestToolDefNoArguments(t *testing.T) {
	def := ToolDefForAction(state.Action{Name: "clear-plan", Description: "Clear the plan."})
	if len(def.Parameters["required"].([]string)) != 0 {
		t.Errorf("required = %v", def.Parameters["required"])
	}
	if len(def.Parameters["properties"].(map[string]any)) != 0 {
		t.Errorf("properties = %v", def.Parameters["properties"])
	}
}

// The generated parameter objects must be valid JSON Schema and must accept
// the argument shapes providers will send back.
func TestToolDefIsValidJSONSchema(t *testing.T) {
	def := ToolDefForAction(state.Action{
		Name:              "save-memory",
		Description:       "Save data under a key.",
		ExamplePayload:    strptr("the data"),
		ExampleAttributes: map[string]string{"key": "my-note"},
	})

	raw, err := json.Marshal(def.Parameters)
	if err != nil {
		t.Fatal(err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool.json", bytes.NewReader(raw)); err != nil {
		t.Fatal(err)
	}
	schema, err := compiler.Compile("tool.json")
	if err != nil {
		t.Fatalf("generated parameters are not a valid schema: %v", err)
	}

	valid := map[string]any{"payload": "hello", "key": "note"}
	if err := schema.Validate(valid); err != nil {
		t.Errorf("valid arguments rejected: %v", err)
	}

	missing := map[string]any{"payload": "hello"}
	if err := schema.Validate(missing); err == nil {
		t.Error("arguments missing a required attribute were accepted")
	}
}

func TestInvocationFromToolCall(t *testing.T) {
	inv := InvocationFromToolCall("save-memory", map[string]string{
		"payload": "hello",
		"key":     "note",
	})
	if inv.Action != "save-memory" {
		t.Errorf("action = %s", inv.Action)
	}
	if inv.Payload == nil || *inv.Payload != "hello" {
		t.Errorf("payload = %v", inv.Payload)
	}
	if inv.Attributes["key"] != "note" {
		t.Errorf("attributes = %v", inv.Attributes)
	}

	bare := InvocationFromToolCall("clear-plan", nil)
	if bare.Payload != nil || bare.Attributes != nil {
		t.Errorf("bare call should have no arguments: %+v", bare)
	}
}
