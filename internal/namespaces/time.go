package namespaces

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

const timeStorage = "time"

// Time anchors the task to process time ("started at") and lets the model
// deliberately wait, for targets that need polling.
func Time() state.Namespace {
	return state.Namespace{
		Name:     "Time",
		Default:  true,
		Storages: []state.Descriptor{state.TimeAnchor(timeStorage)},
		Actions: []state.Action{
			{
				Name:           "wait",
				Description:    "Use this action to wait for a given amount of seconds before the next step.",
				ExamplePayload: strptr("5"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					secs, err := strconv.Atoi(strings.TrimSpace(*payload))
					if err != nil || secs < 0 {
						return nil, fmt.Errorf("invalid amount of seconds %q", *payload)
					}
					s.Events().Emit(models.Event{
						Type:      models.EventSleeping,
						Timestamp: s.Now().Unix(),
						Seconds:   secs,
					})
					time.Sleep(time.Duration(secs) * time.Second)
					return nil, nil
				},
			},
		},
	}
}
