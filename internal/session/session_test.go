package session

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"shopdesk/ledger-csv/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	return NewStore(path, logging.NewMockLogger()), path
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	store, _ := newStore(t)

	sess, err := store.Load()
	require.NoError(t, err)
	assert.True(t, sess.IsEmpty())
}

func TestSave_GeneratesUUIDAndPersists(t *testing.T) {
	store, path := newStore(t)

	saved, err := store.Save(Session{Token: "abc"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.UUID)

	reopened := NewStore(path, logging.NewMockLogger())
	sess, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, sess)

	token, id := reopened.Credentials()
	assert.Equal(t, "abc", token)
	assert.Equal(t, saved.UUID, id)
}

func TestClear_KeepsUUID(t *testing.T) {
	store, path := newStore(t)
	saved, err := store.Save(Session{Token: "abc", UUID: "device"})
	require.NoError(t, err)

	require.NoError(t, store.Clear())

	sess, err := NewStore(path, logging.NewMockLogger()).Load()
	require.NoError(t, err)
	assert.True(t, sess.IsEmpty())
	assert.Equal(t, saved.UUID, sess.UUID)
}

func TestClear_WithoutUUIDRemovesFile(t *testing.T) {
	store, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("token: abc\n"), 0600))

	require.NoError(t, store.Clear())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_CorruptFile(t *testing.T) {
	store, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("token: [unclosed"), 0600))

	_, err := store.Load()
	assert.Error(t, err)

	token, id := store.Credentials()
	assert.Empty(t, token)
	assert.Empty(t, id)
}

func TestLoad_WarnsOnOpenPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: abc\nuuid: d-1\n"), 0600))
	require.NoError(t, os.Chmod(path, 0644))
	logger := logging.NewMockLogger()

	sess, err := NewStore(path, logger).Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.Token)
	assert.True(t, logger.HasEntry("WARN", "Session file is readable by others"))
}

func TestClearSessionPolicy(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Save(Session{Token: "abc", UUID: "device"})
	require.NoError(t, err)

	policy := ClearSessionPolicy{Store: store}
	require.NoError(t, policy.OnUnauthorized(http.StatusUnauthorized))

	token, id := store.Credentials()
	assert.Empty(t, token)
	assert.Equal(t, "device", id)

	assert.NoError(t, ClearSessionPolicy{}.OnUnauthorized(http.StatusForbidden))
}
