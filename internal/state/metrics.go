package state

import "github.com/nerverun/nerve/pkg/models"

// Response/action counter mutations used by the agent loop. Each takes the
// state lock so the loop never touches the metrics struct directly.

func (s *State) OnValidResponse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.ValidResponses++
}

func (s *State) OnEmptyResponse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.EmptyResponses++
}

func (s *State) OnUnparsedResponse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.UnparsedResponses++
}

func (s *State) OnUnknownAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.UnknownActions++
}

func (s *State) OnInvalidAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.InvalidActions++
}

func (s *State) OnValidAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.ValidActions++
}

func (s *State) OnTimedoutAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.TimedoutActions++
}

// RecordUsage folds one chat call's token counts into the run totals.
func (s *State) RecordUsage(u models.Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.OnUsage(u)
}
