package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"homeassist/internal/config"
	appLog "homeassist/internal/log"
	"homeassist/internal/model"
)

// Store keeps events in memory and mirrors every change to a JSON file keyed
// by event ID. A change whose write fails is rolled back in memory.
type Store struct {
	mu     sync.RWMutex
	path   string
	events map[string]model.Event
}

// OpenStore loads path, starting empty when the file does not exist yet.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, events: make(map[string]model.Event)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("event store starting empty", "path", path)
			return s, nil
		}
		return nil, fmt.Errorf("read events %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.events); err != nil {
			return nil, fmt.Errorf("parse events %s: %w", path, err)
		}
		if s.events == nil {
			// A file holding "null".
			s.events = make(map[string]model.Event)
		}
	}
	appLog.Info("event store loaded", "path", path, "event_count", len(s.events))
	return s, nil
}

// List returns all events ordered by date, time and ID.
func (s *Store) List() []model.Event {
	s.mu.RLock()
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
	return out
}

func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

// Put inserts or replaces ev and persists the store.
func (s *Store) Put(ev model.Event) error {
	return s.PutAll([]model.Event{ev})
}

// PutAll inserts or replaces every event with a single write.
func (s *Store) PutAll(evs []model.Event) error {
	if len(evs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	type previous struct {
		ev      model.Event
		existed bool
	}
	prev := make(map[string]previous, len(evs))
	for _, ev := range evs {
		if _, seen := prev[ev.ID]; !seen {
			old, existed := s.events[ev.ID]
			prev[ev.ID] = previous{ev: old, existed: existed}
		}
		s.events[ev.ID] = ev
	}

	if err := s.persistLocked(); err != nil {
		for id, p := range prev {
			if p.existed {
				s.events[id] = p.ev
			} else {
				delete(s.events, id)
			}
		}
		return err
	}
	return nil
}

// Delete removes the event with id, returning what was removed.
func (s *Store) Delete(id string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	delete(s.events, id)
	if err := s.persistLocked(); err != nil {
		s.events[id] = ev
		return model.Event{}, err
	}
	return ev, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	if err := config.WriteFileAtomic(s.path, data); err != nil {
		appLog.Error("event store save failed", err, "path", s.path)
		return fmt.Errorf("save events %s: %w", s.path, err)
	}
	return nil
}
