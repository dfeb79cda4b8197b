package state

import (
	"testing"

	"github.com/nerverun/nerve/pkg/models"
)

type recordingSink struct {
	events []models.Event
}

func (r *recordingSink) Emit(e models.Event) { r.events = append(r.events, e) }

func testNamespace() Namespace {
	return Namespace{
		Name:    "memory",
		Default: true,
		Storages: []Descriptor{
			Tagged("memories"),
		},
		Actions: []Action{
			{
				Name:              "save-memory",
				ExamplePayload:    strPtr("hello"),
				ExampleAttributes: map[string]string{"key": "note"},
				Run: func(s *State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage("memories")
					if err != nil {
						return nil, err
					}
					if err := st.AddTagged(attrs["key"], *payload); err != nil {
						return nil, err
					}
					out := models.Text("saved")
					return &out, nil
				},
			},
		},
	}
}

func strPtr(s string) *string { return &s }

func newTestState(t *testing.T, sink EventSink, maxSteps int) *State {
	t.Helper()
	s, err := New(Config{
		Namespaces: []Namespace{testNamespace()},
		MaxSteps:   maxSteps,
		Events:     sink,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestOnStepBudget(t *testing.T) {
	sink := &recordingSink{}
	s := newTestState(t, sink, 2)

	if err := s.OnStep(); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if err := s.OnStep(); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if err := s.OnStep(); err == nil {
		t.Fatalf("expected step budget exceeded on step 3")
	}
}

func TestOnStepUnlimited(t *testing.T) {
	s := newTestState(t, &recordingSink{}, 0)
	for i := 0; i < 100; i++ {
		if err := s.OnStep(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestActionDispatchAndStorageUpdateEvent(t *testing.T) {
	sink := &recordingSink{}
	s := newTestState(t, sink, 0)

	action, err := s.GetAction("save-memory")
	if err != nil {
		t.Fatalf("GetAction: %v", err)
	}
	payload := "hello"
	result, err := action.Run(s, map[string]string{"key": "note"}, &payload)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.String() != "saved" {
		t.Fatalf("unexpected result %q", result.String())
	}

	st, err := s.GetStorage("memories")
	if err != nil {
		t.Fatalf("GetStorage: %v", err)
	}
	got, ok := st.GetTagged("note")
	if !ok || got != "hello" {
		t.Fatalf("expected memories[note]=hello, got %q ok=%v", got, ok)
	}

	found := false
	for _, e := range sink.events {
		if e.Type == models.EventStorageUpdate && e.Storage.Key == "note" && e.Storage.New != nil && *e.Storage.New == "hello" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a StorageUpdate event for the mutation, got %#v", sink.events)
	}
}

func TestGetActionUnknown(t *testing.T) {
	s := newTestState(t, &recordingSink{}, 0)
	if _, err := s.GetAction("does-not-exist"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestOnCompleteIdempotent(t *testing.T) {
	sink := &recordingSink{}
	s := newTestState(t, sink, 0)
	s.OnComplete(false, "done")
	s.OnComplete(true, "changed mind")

	if !s.IsComplete() {
		t.Fatalf("expected complete")
	}
	if s.Impossible() {
		t.Fatalf("expected first OnComplete to win, got impossible=true")
	}
	count := 0
	for _, e := range sink.events {
		if e.Type == models.EventTaskComplete {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one TaskComplete event, got %d", count)
	}
}

func TestDuplicateStorageNameRejected(t *testing.T) {
	ns1 := Namespace{Name: "a", Storages: []Descriptor{Tagged("shared")}}
	ns2 := Namespace{Name: "b", Storages: []Descriptor{Tagged("shared")}}
	if _, err := New(Config{Namespaces: []Namespace{ns1, ns2}}); err == nil {
		t.Fatalf("expected duplicate storage name to be rejected")
	}
}
