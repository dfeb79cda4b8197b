package events

import (
	"encoding/json"
	"io"

	"github.com/nerverun/nerve/pkg/models"
)

// streamRecord is the wire shape of one event on the JSONL stream: a
// timestamp plus the event body under its tag.
type streamRecord struct {
	Timestamp int64        `json:"timestamp"`
	Event     models.Event `json:"event"`
}

// StreamWriter consumes a subscription and writes each event as one JSON
// line. It blocks until the subscription channel is closed, so callers
// usually run it on its own goroutine.
func StreamWriter(sub <-chan models.Event, w io.Writer) error {
	enc := json.NewEncoder(w)
	for e := range sub {
		if err := enc.Encode(streamRecord{Timestamp: e.Timestamp, Event: e}); err != nil {
			return err
		}
	}
	return nil
}
