package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-bot/internal/domain"
	"interview-bot/internal/session"
)

func TestStore_SaveAndLoad(t *testing.T) {
	store := session.NewStore(10, time.Minute)
	id := store.Create()

	text, ok := store.Context(id)
	require.True(t, ok)
	assert.Nil(t, text)

	require.NoError(t, store.SaveContext(id, "Senior Go engineer"))
	text, ok = store.Context(id)
	require.True(t, ok)
	require.NotNil(t, text)
	assert.Equal(t, "Senior Go engineer", *text)

	require.NoError(t, store.SaveContext(id, ""))
	text, _ = store.Context(id)
	require.NotNil(t, text)
	assert.Equal(t, "", *text)
}

func TestStore_UnknownSession(t *testing.T) {
	store := session.NewStore(10, time.Minute)

	_, ok := store.Context("missing")
	assert.False(t, ok)
	assert.ErrorIs(t, store.SaveContext("missing", "x"), session.ErrNotFound)

	_, err := store.Acquire("missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStore_Expires(t *testing.T) {
	store := session.NewStore(10, 20*time.Millisecond)
	id := store.Create()
	require.NoError(t, store.SaveContext(id, "resume"))

	require.Eventually(t, func() bool {
		_, ok := store.Context(id)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestStore_Acquire(t *testing.T) {
	store := session.NewStore(10, time.Minute)
	id := store.Create()

	release, err := store.Acquire(id)
	require.NoError(t, err)

	_, err = store.Acquire(id)
	assert.ErrorIs(t, err, domain.ErrBusy)

	release()
	release()

	release, err = store.Acquire(id)
	require.NoError(t, err)
	release()
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	store := session.NewStore(10, time.Minute)
	a, b := store.Create(), store.Create()
	require.NotEqual(t, a, b)

	require.NoError(t, store.SaveContext(a, "alpha"))

	text, ok := store.Context(b)
	require.True(t, ok)
	assert.Nil(t, text)
	assert.Equal(t, 2, store.Len())
}
