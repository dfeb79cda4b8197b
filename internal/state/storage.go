// Package state implements the agent's working memory: named storages,
// conversation history, variables, and the run-level counters that gate
// whether another step is allowed.
package state

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// StorageType controls how a storage is rendered into the system prompt and
// which mutation methods are valid against it. Ordinal values match the
// ordering storages are serialized in: CurrentPrevious, Completion,
// Untagged, Tagged.
type StorageType uint8

const (
	StorageCurrentPrevious StorageType = iota
	StorageCompletion
	StorageUntagged
	StorageTagged
	StorageTime
	StorageText
)

func (t StorageType) String() string {
	switch t {
	case StorageCurrentPrevious:
		return "current-previous"
	case StorageCompletion:
		return "completion"
	case StorageUntagged:
		return "untagged"
	case StorageTagged:
		return "tagged"
	case StorageTime:
		return "time"
	case StorageText:
		return "text"
	default:
		return "unknown"
	}
}

const (
	currentTag  = "__current"
	previousTag = "__previous"
)

// Entry is one value held in a storage, with a completion flag meaningful
// only for Completion-type storages.
type Entry struct {
	Complete bool
	Data     string
}

// Update describes a single mutation applied to a storage. Observers get
// it through the event bus; storages never write to stdout themselves.
type Update struct {
	StorageName string
	StorageType StorageType
	Key         string
	Prev        string
	New         string
}

// Storage is a named, ordered key/value area with type-specific mutation
// rules. Concurrency follows the mutex-guarded-map idiom used throughout
// this codebase rather than pulling in a third-party ordered-map type.
type Storage struct {
	Name string
	Type StorageType

	mu      sync.RWMutex
	order   []string
	entries map[string]Entry
	onEvent func(Update)

	started time.Time // Time storages only: process-time anchor, set at construction
}

const (
	startedTag = "started_at"
	textTag    = "text"
)

// NewStorage creates an empty storage of the given type. onEvent may be nil.
// A Time storage captures "started at" the instant it is constructed, since
// it holds no user-writable entries.
func NewStorage(name string, typ StorageType, onEvent func(Update)) *Storage {
	s := &Storage{
		Name:    name,
		Type:    typ,
		entries: map[string]Entry{},
		onEvent: onEvent,
	}
	if typ == StorageTime {
		s.started = time.Now()
	}
	return s
}

func (s *Storage) emit(key, prev, next string) {
	if s.onEvent != nil {
		s.onEvent(Update{StorageName: s.Name, StorageType: s.Type, Key: key, Prev: prev, New: next})
	}
}

func (s *Storage) insert(key string, e Entry) {
	if _, ok := s.entries[key]; !ok {
		s.order = append(s.order, key)
	}
	s.entries[key] = e
}

func (s *Storage) remove(key string) {
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// AddTagged inserts or overwrites a key=value entry in a Tagged storage.
func (s *Storage) AddTagged(key, data string) error {
	if s.Type != StorageTagged {
		return fmt.Errorf("%w: storage %s is not tagged", ErrInvalidStorageOperation, s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.entries[key].Data
	s.insert(key, Entry{Data: data})
	s.emit(key, prev, data)
	return nil
}

// DelTagged removes a key from a Tagged storage.
func (s *Storage) DelTagged(key string) error {
	if s.Type != StorageTagged {
		return fmt.Errorf("%w: storage %s is not tagged", ErrInvalidStorageOperation, s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.entries[key].Data
	s.remove(key)
	s.emit(key, prev, "")
	return nil
}

// GetTagged returns a key's value from a Tagged storage.
func (s *Storage) GetTagged(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e.Data, ok
}

// AddUntagged appends an entry to an Untagged or Completion storage under an
// auto-assigned 1-based positional tag.
func (s *Storage) AddUntagged(data string) (string, error) {
	if s.Type != StorageUntagged && s.Type != StorageCompletion {
		return "", fmt.Errorf("%w: storage %s does not accept untagged entries", ErrInvalidStorageOperation, s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tag := strconv.Itoa(len(s.order) + 1)
	s.insert(tag, Entry{Data: data})
	s.emit(tag, "", data)
	return tag, nil
}

// DelUntagged removes the entry at the given positional tag and reindexes
// the remaining entries so positional tags stay contiguous from "1".
func (s *Storage) DelUntagged(tag string) error {
	if s.Type != StorageUntagged && s.Type != StorageCompletion {
		return fmt.Errorf("%w: storage %s does not hold untagged entries", ErrInvalidStorageOperation, s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[tag]
	if !ok {
		return fmt.Errorf("no entry %s in storage %s", tag, s.Name)
	}
	prev := e.Data
	s.remove(tag)
	s.reindex()
	s.emit(tag, prev, "")
	return nil
}

// reindex rebuilds positional tags as "1".."n" preserving order. Callers
// hold the lock.
func (s *Storage) reindex() {
	entries := make([]Entry, 0, len(s.order))
	for _, k := range s.order {
		entries = append(entries, s.entries[k])
	}
	s.order = s.order[:0]
	s.entries = make(map[string]Entry, len(entries))
	for i, e := range entries {
		tag := strconv.Itoa(i + 1)
		s.order = append(s.order, tag)
		s.entries[tag] = e
	}
}

// SetComplete sets (complete=true) or clears (complete=false) the completion
// flag on a Completion storage entry, addressed by its positional tag.
func (s *Storage) SetComplete(tag string, complete bool) error {
	if s.Type != StorageCompletion {
		return fmt.Errorf("%w: storage %s is not a completion storage", ErrInvalidStorageOperation, s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[tag]
	if !ok {
		return fmt.Errorf("no entry %s in storage %s", tag, s.Name)
	}
	prev := e.Data
	e.Complete = complete
	s.entries[tag] = e
	s.emit(tag, prev, e.Data)
	return nil
}

// SetCurrent demotes the previous "__current" entry to "__previous" and
// installs data as the new current value. Only valid on CurrentPrevious
// storages.
func (s *Storage) SetCurrent(data string) error {
	if s.Type != StorageCurrentPrevious {
		return fmt.Errorf("%w: storage %s is not current-previous", ErrInvalidStorageOperation, s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[currentTag]; ok {
		s.remove(currentTag)
		s.insert(previousTag, old)
	}
	prev := s.entries[previousTag].Data
	s.insert(currentTag, Entry{Data: data})
	s.emit(currentTag, prev, data)
	return nil
}

// Current returns the current value of a CurrentPrevious storage.
func (s *Storage) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[currentTag]
	return e.Data, ok
}

// StartedAt returns the process-time anchor of a Time storage.
func (s *Storage) StartedAt() (time.Time, error) {
	if s.Type != StorageTime {
		return time.Time{}, fmt.Errorf("%w: storage %s is not a time storage", ErrInvalidStorageOperation, s.Name)
	}
	return s.started, nil
}

// SetText overwrites the single free-text blob held by a Text storage.
func (s *Storage) SetText(data string) error {
	if s.Type != StorageText {
		return fmt.Errorf("%w: storage %s is not a text storage", ErrInvalidStorageOperation, s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.entries[textTag].Data
	s.insert(textTag, Entry{Data: data})
	s.emit(textTag, prev, data)
	return nil
}

// AppendText accumulates into a Text storage's blob, newline-separated.
func (s *Storage) AppendText(data string) error {
	if s.Type != StorageText {
		return fmt.Errorf("%w: storage %s is not a text storage", ErrInvalidStorageOperation, s.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.entries[textTag].Data
	next := data
	if prev != "" {
		next = prev + "\n" + data
	}
	s.insert(textTag, Entry{Data: next})
	s.emit(textTag, prev, next)
	return nil
}

// Text returns the current value of a Text storage.
func (s *Storage) Text() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[textTag]
	return e.Data, ok
}

// Clear empties the storage entirely, emitting a single update with an
// empty key and no prev/new value.
func (s *Storage) Clear() {
	s.mu.Lock()
	s.order = nil
	s.entries = map[string]Entry{}
	s.mu.Unlock()
	s.emit("", "", "")
}

// Entries returns a snapshot of the storage's entries in insertion order.
func (s *Storage) Entries() []struct {
	Key   string
	Entry Entry
} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]struct {
		Key   string
		Entry Entry
	}, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, struct {
			Key   string
			Entry Entry
		}{k, s.entries[k]})
	}
	return out
}

// Descriptor declares a storage a namespace wants present in agent state,
// plus any predefined entries to seed it with.
type Descriptor struct {
	Name       string
	Type       StorageType
	Predefined map[string]string
}

func Tagged(name string) Descriptor     { return Descriptor{Name: name, Type: StorageTagged} }
func Untagged(name string) Descriptor   { return Descriptor{Name: name, Type: StorageUntagged} }
func Completion(name string) Descriptor { return Descriptor{Name: name, Type: StorageCompletion} }
func PreviousCurrent(name string) Descriptor {
	return Descriptor{Name: name, Type: StorageCurrentPrevious}
}
func TimeAnchor(name string) Descriptor { return Descriptor{Name: name, Type: StorageTime} }
func FreeText(name string) Descriptor   { return Descriptor{Name: name, Type: StorageText} }

func (d Descriptor) Predefine(data map[string]string) Descriptor {
	d.Predefined = data
	return d
}
