package session

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novasvilla/facelift/internal/store"
	"github.com/novasvilla/facelift/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.NewSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewManager(s)
}

func TestGetUnknownKeyReturnsFreshState(t *testing.T) {
	m := newTestManager(t)

	st, err := m.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, PhaseNew, st.Phase)
	assert.Nil(t, st.Inventory)
	assert.Zero(t, st.GenVersion)
}

func TestStateSurvivesRoundTrip(t *testing.T) {
	m := newTestManager(t)

	original := &State{
		Project:        "villa-sur",
		Section:        "fachada-principal",
		SectionType:    "fachada",
		Style:          "mediterraneo moderno",
		UploadedImages: []string{"frente.jpg", "lateral.jpg"},
		Inventory: &types.Inventory{
			Raw: "ELEM_01: Pared principal",
			Elements: []types.Element{{
				ID:          "ELEM_01",
				Name:        "Pared principal",
				Substrate:   "revoco",
				ChangeWorth: true,
				Group:       "pared",
			}},
		},
		CurrentSpec: &types.Specification{
			Name:    "Alternativa B",
			Concept: "Monocromo calido",
			Treatments: map[string]types.Treatment{
				"ELEM_01": {Kind: types.TreatChange, Color: "RAL 9010", Finish: "mate"},
			},
			Version: 2,
		},
		UploadVersion: 2,
		GenVersion:    5,
		Phase:         PhaseRefining,
	}
	require.NoError(t, m.Save("user1", original))

	got, err := m.Get("user1")
	require.NoError(t, err)
	if diff := cmp.Diff(original, got); diff != "" {
		t.Fatalf("state changed across round trip (-want +got):\n%s", diff)
	}
}

func TestUpdateAppliesAndPersists(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Update("user1", func(st *State) error {
		st.Style = "industrial"
		st.GenVersion++
		st.Phase = PhaseProposed
		return nil
	})
	require.NoError(t, err)

	got, err := m.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, "industrial", got.Style)
	assert.Equal(t, 1, got.GenVersion)
	assert.Equal(t, PhaseProposed, got.Phase)
}

func TestConcurrentUpdatesOnSameKeySerialize(t *testing.T) {
	m := newTestManager(t)

	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update("user1", func(st *State) error {
				st.GenVersion++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, rounds, got.GenVersion)
}

func TestResetDiscardsState(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Save("user1", &State{Style: "rustico", Phase: PhaseProposed}))
	require.NoError(t, m.Reset("user1"))

	got, err := m.Get("user1")
	require.NoError(t, err)
	assert.Equal(t, PhaseNew, got.Phase)
	assert.Empty(t, got.Style)
}
