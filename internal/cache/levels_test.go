package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levelsServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLevelsCache_RefreshParsesPrefixedKeys(t *testing.T) {
	srv := levelsServer(t, `{"levels": {
		"bonkey-257": {"level": 12},
		"bonkey-9": {"level": 3},
		"other-1": {"level": 99},
		"bonkey-bad": {"level": 5},
		"bonkey-11": {}
	}}`)

	c := NewLevelsCache(LevelsCacheOptions{URL: srv.URL, Dir: t.TempDir()})
	require.NoError(t, c.Refresh(context.Background()))

	lvl, ok := c.Level("257")
	require.True(t, ok)
	assert.Equal(t, 12, lvl)

	_, ok = c.Level("1")
	assert.False(t, ok, "keys with foreign prefixes are ignored")
	_, ok = c.Level("11")
	assert.False(t, ok, "entries without a level are ignored")
}

func TestLevelsCache_MissingLevelsObjectIsError(t *testing.T) {
	srv := levelsServer(t, `{"something": "else"}`)
	c := NewLevelsCache(LevelsCacheOptions{URL: srv.URL, Dir: t.TempDir()})
	assert.Error(t, c.Refresh(context.Background()))
}

func TestLevelsCache_EnsureFreshSkipsRecentSnapshot(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"levels": {"bonkey-1": {"level": 1}}}`))
	}))
	defer srv.Close()

	c := NewLevelsCache(LevelsCacheOptions{URL: srv.URL, Dir: t.TempDir()})

	require.NoError(t, c.EnsureFresh(context.Background()))
	require.NoError(t, c.EnsureFresh(context.Background()))

	assert.Equal(t, 1, calls, "second EnsureFresh inside the TTL must not refetch")
}

func TestLevelsCache_WarmsFromDiskAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	srv := levelsServer(t, `{"levels": {"bonkey-5": {"level": 7}}}`)

	first := NewLevelsCache(LevelsCacheOptions{URL: srv.URL, Dir: dir})
	require.NoError(t, first.Refresh(context.Background()))

	// Fresh instance, same dir: level is served without any fetch.
	second := NewLevelsCache(LevelsCacheOptions{URL: "http://127.0.0.1:1", Dir: dir})
	lvl, ok := second.Level("5")
	require.True(t, ok)
	assert.Equal(t, 7, lvl)
	require.NoError(t, second.EnsureFresh(context.Background()),
		"recent persisted meta keeps EnsureFresh from hitting the dead endpoint")
}

func TestLevelsCache_CompareAndRotate(t *testing.T) {
	dir := t.TempDir()
	payload := `{"levels": {"bonkey-1": {"level": 2}, "bonkey-2": {"level": 5}, "bonkey-3": {"level": 1}}}`
	srv := levelsServer(t, payload)

	c := NewLevelsCache(LevelsCacheOptions{URL: srv.URL, Dir: dir})

	// First rotation: no previous snapshot, so no changes.
	changes, err := c.CompareAndRotate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, changes, "first appearance is not a level change")

	// Token 1 levels up, token 3 vanishes, token 4 appears.
	srv2 := levelsServer(t, `{"levels": {"bonkey-1": {"level": 3}, "bonkey-2": {"level": 5}, "bonkey-4": {"level": 9}}}`)
	c.url = srv2.URL

	changes, err = c.CompareAndRotate(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, LevelChange{TokenID: "1", OldLevel: 2, NewLevel: 3}, changes[0])
}

func TestLevelsCache_SnapshotFilesWrittenAtomically(t *testing.T) {
	dir := t.TempDir()
	srv := levelsServer(t, `{"levels": {"bonkey-1": {"level": 1}}}`)

	c := NewLevelsCache(LevelsCacheOptions{URL: srv.URL, Dir: dir})
	require.NoError(t, c.Refresh(context.Background()))

	for _, name := range []string{"levels_curr.json", "levels_meta.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "%s should exist", name)
		_, err = os.Stat(filepath.Join(dir, name+".tmp"))
		assert.True(t, os.IsNotExist(err), "%s.tmp should not linger", name)
	}
}
