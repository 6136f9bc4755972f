// Package session tracks the conversational state of one renovation
// project per session key.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/store"
	"github.com/novasvilla/facelift/internal/types"
)

// Phase names the stage the conversation has reached.
type Phase string

const (
	// PhaseNew means images have not been analyzed yet.
	PhaseNew Phase = "new"
	// PhaseProposed means initial alternatives were generated.
	PhaseProposed Phase = "proposed"
	// PhaseRefining means at least one feedback round was applied.
	PhaseRefining Phase = "refining"
)

// State is everything needed to resume a conversation: the photos, the
// element inventory, the current design specification and the version
// counters used for artifact naming.
type State struct {
	Project     string `json:"project,omitempty"`
	Section     string `json:"section,omitempty"`
	SectionType string `json:"section_type,omitempty"`
	Style       string `json:"style,omitempty"`

	UploadedImages []string              `json:"uploaded_images,omitempty"`
	Inventory      *types.Inventory      `json:"inventory,omitempty"`
	CurrentSpec    *types.Specification  `json:"current_spec,omitempty"`
	Alternatives   []types.Specification `json:"alternatives,omitempty"`

	UploadVersion int   `json:"upload_version"`
	GenVersion    int   `json:"gen_version"`
	Phase         Phase `json:"phase,omitempty"`
}

// Manager loads and saves session state through the SQLite store. Each
// session key gets its own lock so concurrent commands on different
// sessions never serialize on each other.
type Manager struct {
	store *store.SessionStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(s *store.SessionStore) *Manager {
	return &Manager{store: s, locks: make(map[string]*sync.Mutex)}
}

func (m *Manager) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Get returns the stored state for key, or a fresh State when none exists.
func (m *Manager) Get(key string) (*State, error) {
	raw, err := m.store.Load(key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return &State{Phase: PhaseNew}, nil
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", key, err)
	}
	return &st, nil
}

// Save persists the state for key.
func (m *Manager) Save(key string, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", key, err)
	}
	if err := m.store.Save(key, raw); err != nil {
		return err
	}
	logging.Storage("session %s saved (phase=%s, gen=%d)", key, st.Phase, st.GenVersion)
	return nil
}

// Update loads the state for key, applies fn under the session lock and
// persists the result. fn receives a fresh State the first time a key is
// seen.
func (m *Manager) Update(key string, fn func(*State) error) (*State, error) {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	st, err := m.Get(key)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := m.Save(key, st); err != nil {
		return nil, err
	}
	return st, nil
}

// List returns all known sessions, most recent first.
func (m *Manager) List() ([]store.SessionInfo, error) {
	return m.store.List()
}

// Reset discards the stored state for key.
func (m *Manager) Reset(key string) error {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()
	return m.store.Delete(key)
}
