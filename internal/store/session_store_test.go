package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := NewSessionStore(filepath.Join(t.TempDir(), ".facelift", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	payload := []byte(`{"project":"villa-sur","style":"mediterraneo","gen_version":3}`)
	require.NoError(t, s.Save("user1", payload))

	got, err := s.Load("user1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSaveOverwritesExistingState(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("user1", []byte(`{"gen_version":1}`)))
	require.NoError(t, s.Save("user1", []byte(`{"gen_version":2}`)))

	got, err := s.Load("user1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"gen_version":2}`), got)

	infos, err := s.List()
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestLoadUnknownKeyReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Load("nadie")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListOrdersByRecency(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("old", []byte(`{}`)))
	require.NoError(t, s.Save("new", []byte(`{}`)))
	// Touch "old" again so it becomes the most recent.
	require.NoError(t, s.Save("old", []byte(`{"v":2}`)))

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "old", infos[0].Key)
	assert.Equal(t, "new", infos[1].Key)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("user1", []byte(`{}`)))
	require.NoError(t, s.Delete("user1"))
	require.NoError(t, s.Delete("user1"))

	got, err := s.Load("user1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	s1, err := NewSessionStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save("user1", []byte(`{"section":"fachada"}`)))
	require.NoError(t, s1.Close())

	s2, err := NewSessionStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load("user1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"section":"fachada"}`), got)
}
