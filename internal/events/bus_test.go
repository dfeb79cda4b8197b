package events

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nerverun/nerve/pkg/models"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(8)
	sub := bus.Subscribe()

	bus.Emit(models.Event{Type: models.EventTaskStarted, Timestamp: 1})
	bus.Emit(models.Event{Type: models.EventMetricsUpdate, Timestamp: 2})
	bus.Emit(models.Event{Type: models.EventTaskComplete, Timestamp: 3})
	bus.Close()

	var got []models.EventType
	for e := range sub {
		got = append(got, e.Type)
	}
	want := []models.EventType{models.EventTaskStarted, models.EventMetricsUpdate, models.EventTaskComplete}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBusDropsWhenSubscriberLags(t *testing.T) {
	bus := NewBus(2)
	sub := bus.Subscribe()

	for i := 0; i < 5; i++ {
		bus.Emit(models.Event{Type: models.EventSleeping, Timestamp: int64(i)})
	}
	bus.Close()

	var got []models.Event
	for e := range sub {
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 (capacity)", len(got))
	}
	// the surviving events are the oldest ones, still in publish order
	if got[0].Timestamp != 0 || got[1].Timestamp != 1 {
		t.Errorf("unexpected surviving events: %+v", got)
	}
}

func TestBusEmitAfterClose(t *testing.T) {
	bus := NewBus(2)
	bus.Close()
	bus.Emit(models.Event{Type: models.EventSleeping}) // must not panic

	sub := bus.Subscribe()
	if _, ok := <-sub; ok {
		t.Error("subscription on a closed bus should be closed immediately")
	}
}

func TestStreamWriter(t *testing.T) {
	bus := NewBus(8)
	sub := bus.Subscribe()

	bus.Emit(models.Event{Type: models.EventEmptyResponse, Timestamp: 42})
	bus.Close()

	var buf bytes.Buffer
	if err := StreamWriter(sub, &buf); err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `"timestamp":42`) {
		t.Errorf("missing timestamp in %q", line)
	}
	if !strings.Contains(line, `"empty_response"`) {
		t.Errorf("missing event tag in %q", line)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", buf.String())
	}
}
