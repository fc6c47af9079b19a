package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoke233/metting/internal/domain"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name string
		key  string
	}{
		{name: "empty", key: ""},
		{name: "whitespace", key: "   "},
		{name: "leading slash", key: "/meeting/openai"},
		{name: "trailing slash", key: "meeting/openai/"},
		{name: "double slash", key: "meeting//openai"},
		{name: "inner space", key: "meeting/open ai"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.key, "value")
			require.ErrorIs(t, err, ErrInvalidKey)
			_, err = store.Get(context.Background(), tc.key)
			require.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "secrets")
	store := NewStore(root)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "meeting/openai/api_key", "sk-one\n"))
	require.NoError(t, store.Put(ctx, "meeting/other", "two"))

	got, err := store.Get(ctx, "meeting/openai/api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-one", got)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(root)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var creds credentials
	require.NoError(t, toml.Unmarshal(data, &creds))
	assert.Equal(t, map[string]string{
		"meeting/openai/api_key": "sk-one",
		"meeting/other":          "two",
	}, creds.Secrets)
}

func TestStorePutOverwritesExistingValue(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "meeting/openai/api_key", "old"))
	require.NoError(t, store.Put(ctx, "meeting/openai/api_key", "new"))

	got, err := store.Get(ctx, "meeting/openai/api_key")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestStoreGetMissingNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	_, err := store.Get(context.Background(), "meeting/missing")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)

	require.NoError(t, store.Put(context.Background(), "meeting/present", "x"))
	_, err = store.Get(context.Background(), "meeting/missing")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreDeleteIsIdempotentAndRemovesEmptyFile(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "meeting/missing"))

	require.NoError(t, store.Put(ctx, "meeting/a", "1"))
	require.NoError(t, store.Put(ctx, "meeting/b", "2"))

	require.NoError(t, store.Delete(ctx, "meeting/a"))
	_, err := store.Get(ctx, "meeting/a")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
	got, err := store.Get(ctx, "meeting/b")
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	require.NoError(t, store.Delete(ctx, "meeting/b"))
	_, err = os.Stat(store.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, store.Delete(ctx, "meeting/b"))
}

func TestStorePutRejectsEmptyValue(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	err := store.Put(context.Background(), "meeting/openai/api_key", " \n")
	require.ErrorContains(t, err, "value is empty")

	_, err = os.Stat(store.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreReportsCorruptFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("secrets = ["), 0o600))

	_, err := NewStore(root).Get(context.Background(), "meeting/openai/api_key")
	require.ErrorContains(t, err, "decode credentials file")
}

func TestStoreConcurrentPutsKeepEveryKey(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()
	keys := []string{"meeting/a", "meeting/b", "meeting/c", "meeting/d"}

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put(ctx, key, key+"-value"))
		}()
	}
	wg.Wait()

	for _, key := range keys {
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key+"-value", got)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewStore(t.TempDir())
	require.ErrorIs(t, store.Put(ctx, "meeting/a", "1"), context.Canceled)
	_, err := store.Get(ctx, "meeting/a")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.Delete(ctx, "meeting/a"), context.Canceled)
}
