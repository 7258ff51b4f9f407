package widget

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdentityStore(t *testing.T) {
	store := NewMemoryIdentityStore()

	_, ok := store.Get("w1")
	assert.False(t, ok)

	require.NoError(t, store.Set("w1", "guest-1"))
	guestID, ok := store.Get("w1")
	assert.True(t, ok)
	assert.Equal(t, "guest-1", guestID)
}

func TestFileIdentityStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identities.json")

	store, err := NewFileIdentityStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("w1", "guest-1"))

	reopened, err := NewFileIdentityStore(path)
	require.NoError(t, err)
	guestID, ok := reopened.Get("w1")
	assert.True(t, ok)
	assert.Equal(t, "guest-1", guestID)
}

func TestFileIdentityStoreIsPerWidget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identities.json")

	store, err := NewFileIdentityStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("w1", "guest-1"))
	require.NoError(t, store.Set("w2", "guest-2"))

	guestID, ok := store.Get("w1")
	assert.True(t, ok)
	assert.Equal(t, "guest-1", guestID)

	guestID, ok = store.Get("w2")
	assert.True(t, ok)
	assert.Equal(t, "guest-2", guestID)

	_, ok = store.Get("w3")
	assert.False(t, ok)
}

func TestFileIdentityStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identities.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewFileIdentityStore(path)
	assert.Error(t, err)
}
