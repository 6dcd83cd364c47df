package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := OpenSQLite(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)
	bolt, err := OpenBolt(filepath.Join(dir, "kv.bolt"))
	require.NoError(t, err)

	out := map[string]KV{
		"sqlite": sqlite,
		"bolt":   bolt,
		"memory": NewMemory(),
	}
	t.Cleanup(func() {
		for _, kv := range out {
			_ = kv.Close()
		}
	})
	return out
}

func TestKVRoundTrip(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get("missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set("a", []byte("one")))
			got, err := kv.Get("a")
			require.NoError(t, err)
			require.Equal(t, []byte("one"), got)

			require.NoError(t, kv.Set("a", []byte("two")))
			got, err = kv.Get("a")
			require.NoError(t, err)
			require.Equal(t, []byte("two"), got)

			require.NoError(t, kv.Delete("a"))
			_, err = kv.Get("a")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Delete("never-set"))
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flyvpn.db")

	kv, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(KeyLanguage, []byte("de")))
	require.NoError(t, kv.Close())

	kv, err = OpenSQLite(path)
	require.NoError(t, err)
	defer kv.Close()

	got, err := kv.Get(KeyLanguage)
	require.NoError(t, err)
	require.Equal(t, "de", string(got))
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []string{"", "sqlite", "Bolt", "memory"} {
		kv, err := Open(kind, filepath.Join(dir, kind))
		require.NoError(t, err, kind)
		require.NoError(t, kv.Close())
	}

	_, err := Open("redis", dir)
	require.Error(t, err)
}
