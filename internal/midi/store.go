// ABOUTME: Persisted MIDI CC to parameter mapping store
// ABOUTME: Flat JSON file, rewritten wholesale, unique per (channel, cc)
package midi

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Control identifies one MIDI control change source and when it was bound.
type Control struct {
	Channel    uint8     `json:"channel"`
	CC         uint8     `json:"cc"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Store maps logical parameter IDs to MIDI controls. The whole mapping set
// is read at startup and rewritten on every mutation. A (channel, cc) pair
// is unique across parameters: assigning one that is already bound deletes
// the older binding, keeping only the most recently assigned parameter.
type Store struct {
	path string

	mu       sync.Mutex
	mappings map[string]Control
}

// NewStore creates a store backed by the JSON file at path. Nothing is
// read until Load.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		mappings: make(map[string]Control),
	}
}

// Load reads the mapping file. A missing file is an empty mapping set, not
// an error. Duplicate (channel, cc) pairs in the stored data are resolved
// on the spot: only the newest assignment survives.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read mapping store: %w", err)
	}

	var raw map[string]Control
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse mapping store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mappings = make(map[string]Control, len(raw))
	for param, control := range raw {
		if holder, ok := s.lookup(control.Channel, control.CC); ok {
			if s.mappings[holder].AssignedAt.After(control.AssignedAt) {
				log.Debug().Str("param", param).Msg("dropping stale duplicate mapping")
				continue
			}
			delete(s.mappings, holder)
		}
		s.mappings[param] = control
	}
	return nil
}

// Assign binds a parameter to a control and persists the whole set. An
// existing parameter bound to the same (channel, cc) loses its binding.
func (s *Store) Assign(param string, channel, cc uint8) error {
	s.mu.Lock()
	if holder, ok := s.lookup(channel, cc); ok && holder != param {
		delete(s.mappings, holder)
	}
	s.mappings[param] = Control{Channel: channel, CC: cc, AssignedAt: time.Now()}
	s.mu.Unlock()

	return s.save()
}

// Remove deletes a parameter's binding and persists the whole set.
func (s *Store) Remove(param string) error {
	s.mu.Lock()
	delete(s.mappings, param)
	s.mu.Unlock()

	return s.save()
}

// Lookup returns the parameter bound to a (channel, cc) pair.
func (s *Store) Lookup(channel, cc uint8) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(channel, cc)
}

// Mapping returns the control bound to a parameter.
func (s *Store) Mapping(param string) (Control, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.mappings[param]
	return c, ok
}

// All returns a copy of the full mapping set.
func (s *Store) All() map[string]Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Control, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v
	}
	return out
}

// lookup finds the parameter holding (channel, cc). Holds the store lock.
func (s *Store) lookup(channel, cc uint8) (string, bool) {
	for param, control := range s.mappings {
		if control.Channel == channel && control.CC == cc {
			return param, true
		}
	}
	return "", false
}

func (s *Store) save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.mappings, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode mapping store: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write mapping store: %w", err)
	}
	return nil
}
