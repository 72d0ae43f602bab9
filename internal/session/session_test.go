package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronzipp/imposter/internal/models"
)

func TestFileStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewFileStore(dir)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	sess := models.Session{User: models.User{ID: "u1", Username: "ana", Wins: 3, Friends: []models.Friend{{ID: "u2", Username: "bo"}}}, Token: "tok"}
	require.NoError(t, s.Save(sess))

	_, err = os.Stat(filepath.Join(dir, "imposter_session.json"))
	require.NoError(t, err)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Key+".json"), []byte("{"), 0o600))
	_, err := NewFileStore(dir).Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestMemory(t *testing.T) {
	var m Memory
	_, err := m.Load()
	assert.ErrorIs(t, err, ErrNoSession)
	require.NoError(t, m.Save(models.Session{User: models.User{ID: "u1"}}))
	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "u1", got.User.ID)
	require.NoError(t, m.Clear())
	_, err = m.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}
