package state

import (
	"errors"
	"testing"
)

func collect(s *Storage) map[string]string {
	out := map[string]string{}
	for _, e := range s.Entries() {
		out[e.Key] = e.Entry.Data
	}
	return out
}

func TestTaggedStorage(t *testing.T) {
	var updates []Update
	s := NewStorage("memories", StorageTagged, func(u Update) { updates = append(updates, u) })

	if err := s.AddTagged("a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTagged("a", "2"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetTagged("a"); got != "2" {
		t.Errorf("a = %q", got)
	}
	if len(updates) != 2 {
		t.Fatalf("got %d updates", len(updates))
	}
	if updates[1].Prev != "1" || updates[1].New != "2" {
		t.Errorf("update = %+v", updates[1])
	}

	if err := s.DelTagged("a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.GetTagged("a"); ok {
		t.Error("a not deleted")
	}
}

func TestTaggedRejectsWrongVariantOps(t *testing.T) {
	s := NewStorage("memories", StorageTagged, nil)
	if _, err := s.AddUntagged("x"); !errors.Is(err, ErrInvalidStorageOperation) {
		t.Errorf("AddUntagged on tagged storage: %v", err)
	}
	if err := s.SetCurrent("x"); !errors.Is(err, ErrInvalidStorageOperation) {
		t.Errorf("SetCurrent on tagged storage: %v", err)
	}
	if err := s.SetText("x"); !errors.Is(err, ErrInvalidStorageOperation) {
		t.Errorf("SetText on tagged storage: %v", err)
	}
}

func TestCompletionReindexAfterDelete(t *testing.T) {
	s := NewStorage("plan", StorageCompletion, nil)
	for _, d := range []string{"one", "two", "three"} {
		if _, err := s.AddUntagged(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetComplete("3", true); err != nil {
		t.Fatal(err)
	}
	if err := s.DelUntagged("1"); err != nil {
		t.Fatal(err)
	}

	got := collect(s)
	if got["1"] != "two" || got["2"] != "three" {
		t.Errorf("entries after reindex: %v", got)
	}
	if _, ok := s.entries["3"]; ok {
		t.Error("tag 3 should be gone after reindex")
	}
	if !s.entries["2"].Complete {
		t.Error("completion flag lost across reindex")
	}

	// next insert continues the contiguous numbering
	tag, err := s.AddUntagged("four")
	if err != nil || tag != "3" {
		t.Errorf("next tag = %q, %v", tag, err)
	}
}

func TestDelUntaggedMissing(t *testing.T) {
	s := NewStorage("plan", StorageUntagged, nil)
	if err := s.DelUntagged("7"); err == nil {
		t.Error("deleting a missing entry should fail")
	}
}

func TestCurrentPreviousDemotion(t *testing.T) {
	s := NewStorage("goal", StorageCurrentPrevious, nil)

	// __previous must not exist before a second assignment
	if err := s.SetCurrent("first"); err != nil {
		t.Fatal(err)
	}
	entries := collect(s)
	if _, ok := entries["__previous"]; ok {
		t.Error("__previous exists after a single assignment")
	}

	if err := s.SetCurrent("second"); err != nil {
		t.Fatal(err)
	}
	entries = collect(s)
	if entries["__current"] != "second" || entries["__previous"] != "first" {
		t.Errorf("entries = %v", entries)
	}
}

func TestTextAccumulates(t *testing.T) {
	s := NewStorage("notes", StorageText, nil)
	if err := s.AppendText("line one"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendText("line two"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Text(); got != "line one\nline two" {
		t.Errorf("text = %q", got)
	}
}

func TestClearEmitsSingleEmptyUpdate(t *testing.T) {
	var updates []Update
	s := NewStorage("memories", StorageTagged, func(u Update) { updates = append(updates, u) })
	_ = s.AddTagged("a", "1")
	updates = nil

	s.Clear()
	if len(updates) != 1 {
		t.Fatalf("got %d updates", len(updates))
	}
	if updates[0].Key != "" || updates[0].Prev != "" || updates[0].New != "" {
		t.Errorf("clear update = %+v", updates[0])
	}
	if len(s.Entries()) != 0 {
		t.Error("storage not emptied")
	}
}

func TestTimeStorageAnchor(t *testing.T) {
	s := NewStorage("time", StorageTime, nil)
	started, err := s.StartedAt()
	if err != nil || started.IsZero() {
		t.Errorf("started = %v, %v", started, err)
	}
	if _, err := NewStorage("notes", StorageText, nil).StartedAt(); err == nil {
		t.Error("StartedAt on non-time storage should fail")
	}
}
