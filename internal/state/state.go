// Package state implements the agent's working memory: named storages,
// conversation history, variables, and the run-level counters that gate
// whether another step is allowed.
package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerverun/nerve/pkg/models"
)

// EventSink receives every event the state engine and, later, the agent
// loop publish. A plain interface (rather than a channel type) so tests can
// supply a recording fake without pulling in the real bus implementation.
type EventSink interface {
	Emit(models.Event)
}

// NopSink discards every event. Used as State's default so callers that
// don't care about the event stream don't have to supply one.
type NopSink struct{}

func (NopSink) Emit(models.Event) {}

// Embedder produces a vector embedding for a piece of text, used by the
// optional RAG namespace's query action. Kept minimal and local (rather
// than importing internal/providers) so state has no dependency on the
// provider package; internal/providers.Embedder implementations satisfy this
// trivially.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the subset of internal/rag/store.Store the rag
// namespace needs, expressed locally for the same reason as Embedder.
type VectorStore interface {
	Search(ctx context.Context, query string, embedding []float32, limit int) ([]string, error)
}

// Clock abstracts time.Now so State's step counters and Time storages are
// deterministic in tests; defaults to the real clock.
type Clock func() time.Time

// New builds the initial State for a task: provisions the storages
// declared by the given namespaces, seeds variables, and wires the event
// sink. Wildcard namespace selection ("*" meaning "every namespace marked
// Default") is resolved by the caller, which passes the already-expanded
// namespace slice in: State itself only provisions what it's given.
type Config struct {
	Namespaces           []Namespace
	MaxSteps             int
	UseNativeToolsFormat bool
	Variables            map[string]string
	Embedder             Embedder
	VectorStore          VectorStore
	Events               EventSink
	Clock                Clock
}

// State aggregates Storages + History + Variables + Metrics and enforces
// their invariants: a single storage per name, a monotonic step counter,
// one StorageUpdate per mutation.
type State struct {
	mu sync.Mutex

	namespaces   []Namespace
	storages     map[string]*Storage
	storageOrder []string
	history      History
	metrics      models.Metrics
	variables    map[string]string

	embedder    Embedder
	vectorStore VectorStore
	events      EventSink
	clock       Clock
	nativeTools bool

	complete   bool
	impossible bool
	reason     string
}

// New provisions a State from cfg. Duplicate storage names declared by two
// namespaces are an error; exactly one storage exists per name per task.
func New(cfg Config) (*State, error) {
	events := cfg.Events
	if events == nil {
		events = NopSink{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &State{
		namespaces:  cfg.Namespaces,
		storages:    map[string]*Storage{},
		variables:   map[string]string{},
		embedder:    cfg.Embedder,
		vectorStore: cfg.VectorStore,
		events:      events,
		clock:       clock,
		nativeTools: cfg.UseNativeToolsFormat,
	}
	s.metrics.MaxSteps = cfg.MaxSteps

	for k, v := range cfg.Variables {
		s.variables[k] = v
	}

	for _, ns := range cfg.Namespaces {
		for _, desc := range ns.Storages {
			if _, exists := s.storages[desc.Name]; exists {
				return nil, fmt.Errorf("duplicate storage %q declared by namespace %q", desc.Name, ns.Name)
			}
			st := NewStorage(desc.Name, desc.Type, s.emitStorageUpdate)
			if desc.Type == StorageTime {
				st.started = clock()
			}
			for k, v := range desc.Predefined {
				seedStorage(st, k, v)
			}
			s.storages[desc.Name] = st
			s.storageOrder = append(s.storageOrder, desc.Name)
		}
	}
	return s, nil
}

// Storages returns every provisioned storage sorted by type ordinal
// (CurrentPrevious, Completion, Untagged, Tagged, then the rest), preserving
// declaration order within a type. This is the fixed order storages are
// rendered into the system prompt.
func (s *State) Storages() []*Storage {
	s.mu.Lock()
	out := make([]*Storage, 0, len(s.storageOrder))
	for _, name := range s.storageOrder {
		out = append(out, s.storages[name])
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func seedStorage(st *Storage, key, value string) {
	switch st.Type {
	case StorageTagged:
		_ = st.AddTagged(key, value)
	case StorageUntagged, StorageCompletion:
		_, _ = st.AddUntagged(value)
	case StorageCurrentPrevious:
		_ = st.SetCurrent(value)
	case StorageText:
		_ = st.SetText(value)
	}
}

func (s *State) emitStorageUpdate(u Update) {
	var prev, next *string
	if u.Prev != "" {
		p := u.Prev
		prev = &p
	}
	if u.New != "" {
		n := u.New
		next = &n
	}
	s.events.Emit(models.Event{
		Type:      models.EventStorageUpdate,
		Timestamp: s.clock().Unix(),
		Storage: &models.StorageUpdate{
			StorageName: u.StorageName,
			StorageType: u.StorageType.String(),
			Key:         u.Key,
			Prev:        prev,
			New:         next,
		},
	})
}

// OnStep increments the step counter, failing with ErrStepBudgetExceeded
// when a positive MaxSteps is already spent.
func (s *State) OnStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics.MaxSteps > 0 && s.metrics.CurrentStep >= s.metrics.MaxSteps {
		return ErrStepBudgetExceeded
	}
	s.metrics.CurrentStep++
	s.events.Emit(models.Event{
		Type:      models.EventMetricsUpdate,
		Timestamp: s.clock().Unix(),
		Metrics:   s.metricsCopy(),
	})
	return nil
}

func (s *State) metricsCopy() *models.Metrics {
	m := s.metrics
	return &m
}

// Metrics returns a snapshot of the run's counters.
func (s *State) Metrics() models.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// GetStorage returns the named storage, failing with ErrStorageNotFound.
// Storage itself is independently safe for concurrent use, so no State
// lock is held across the returned pointer's use.
func (s *State) GetStorage(name string) (*Storage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.storages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStorageNotFound, name)
	}
	return st, nil
}

// GetAction performs a linear search across the enabled namespaces.
// Returns a copy: callers may freely hold onto it.
func (s *State) GetAction(name string) (Action, error) {
	for _, ns := range s.namespaces {
		if a, ok := ns.FindAction(name); ok {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("%w: %s", ErrActionNotFound, name)
}

// Namespaces returns the namespaces this state was provisioned with, used
// by the serializer to build the action catalog and by the agent loop to
// validate calls.
func (s *State) Namespaces() []Namespace { return s.namespaces }

// AddSuccess appends a successful Execution to history.
func (s *State) AddSuccess(call models.Invocation, result models.ToolOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Add(models.Execution{Invocation: call, Result: &result})
	s.metrics.SuccessActions++
}

// AddError appends a failed Execution to history.
func (s *State) AddError(call models.Invocation, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Add(models.Execution{Invocation: call, Err: err})
	s.metrics.ErroredActions++
}

// AddUnparsed appends a model response that could not be parsed into any
// call, keyed under the synthetic action name "unparsed" so it still
// renders through the same Execution→Message path.
func (s *State) AddUnparsed(response string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := response
	s.history.Add(models.Execution{
		Invocation: models.Invocation{Action: "unparsed", Payload: &payload},
		Err:        err,
	})
}

// History returns the full execution history recorded so far.
func (s *State) History() []models.Execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Execution(nil), s.history.Executions()...)
}

// OnComplete marks the task terminal and emits TaskComplete. Idempotent:
// calling it again after completion is a no-op, so exactly one TaskComplete
// is ever published.
func (s *State) OnComplete(impossible bool, reason string) {
	s.mu.Lock()
	if s.complete {
		s.mu.Unlock()
		return
	}
	s.complete = true
	s.impossible = impossible
	s.reason = reason
	s.mu.Unlock()

	var reasonPtr *string
	if reason != "" {
		r := reason
		reasonPtr = &r
	}
	s.events.Emit(models.Event{
		Type:       models.EventTaskComplete,
		Timestamp:  s.clock().Unix(),
		Impossible: impossible,
		Reason:     reasonPtr,
	})
}

// IsComplete reports whether the task has reached a terminal state.
func (s *State) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Impossible reports whether the terminal state (if any) was "impossible".
func (s *State) Impossible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.impossible
}

// Variable returns a previously-resolved variable's value.
func (s *State) Variable(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variables[name]
	return v, ok
}

// SetVariable records a resolved variable's value on first use.
func (s *State) SetVariable(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables[name] = value
}

// Embed proxies to the configured Embedder, failing if none was configured
// (a task with no embedder declared cannot use the rag namespace's query
// action).
func (s *State) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured for this task")
	}
	return s.embedder.Embed(ctx, text)
}

// RAGQuery resolves a natural-language query against the configured vector
// store, embedding it first.
func (s *State) RAGQuery(ctx context.Context, query string, limit int) ([]string, error) {
	if s.vectorStore == nil {
		return nil, fmt.Errorf("no rag store configured for this task")
	}
	vec, err := s.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.vectorStore.Search(ctx, query, vec, limit)
}

// UseNativeToolsFormat reports whether this task talks to the model through
// the provider's native function-calling interface instead of the XML
// textual protocol.
func (s *State) UseNativeToolsFormat() bool { return s.nativeTools }

// Events returns the configured event sink, so the agent loop can publish
// events outside the ones State itself already emits (ActionExecuting,
// Thinking, and so on belong to the loop, not to State).
func (s *State) Events() EventSink { return s.events }

// Now returns the configured clock's current time.
func (s *State) Now() time.Time { return s.clock() }

// Snapshot produces a read-only, value-typed copy of the state for the
// StateUpdate event; subscribers never get a live pointer into mutable
// state.
func (s *State) Snapshot() models.StateSnapshot {
	s.mu.Lock()
	names := make([]string, 0, len(s.storages))
	for name := range s.storages {
		names = append(names, name)
	}
	sort.Strings(names)
	snap := models.StateSnapshot{
		Metrics:  s.metrics,
		Storages: make(map[string][]models.SnapshotEntry, len(names)),
		Complete: s.complete,
	}
	s.mu.Unlock()

	for _, name := range names {
		st, err := s.GetStorage(name)
		if err != nil {
			continue
		}
		entries := st.Entries()
		out := make([]models.SnapshotEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, models.SnapshotEntry{Key: e.Key, Data: e.Entry.Data, Complete: e.Entry.Complete})
		}
		snap.Storages[name] = out
	}
	return snap
}
