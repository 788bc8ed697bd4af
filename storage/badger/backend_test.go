package badger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gamerec/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestOpenBackend_NilLogger(t *testing.T) {
	_, err := OpenBackend("", true, WithLogger(nil))
	assert.Error(t, err)
}

func TestOpenBackend_WithLogger(t *testing.T) {
	backend, err := OpenBackend("", true, WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	defer backend.Close()
	assert.NotNil(t, backend.logger)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	_, err = backend.Get([]byte("k"))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, backend.Set([]byte("k"), []byte("v")), storage.ErrStorageClosed)
}

func TestGetSet(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.Get([]byte("missing"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, backend.Set([]byte("k"), []byte("v")))
	got, err := backend.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestBatchScanDrop(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	err = backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, i := range []int{2, 0, 1} {
			if err := wb.Set(makeCorpusKey(i), []byte{byte(i)}); err != nil {
				return err
			}
		}
		return wb.Set([]byte("other"), []byte("x"))
	})
	require.NoError(t, err)

	var seen []int
	err = backend.Scan(ctx, []byte(corpusPrefix), func(key, value []byte) error {
		idx, err := parseIndexedKey(corpusPrefix, key)
		require.NoError(t, err)
		assert.Equal(t, byte(idx), value[0])
		seen = append(seen, idx)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)

	require.NoError(t, backend.DropPrefix([]byte(corpusPrefix)))
	count := 0
	require.NoError(t, backend.Scan(ctx, []byte(corpusPrefix), func(_, _ []byte) error {
		count++
		return nil
	}))
	assert.Zero(t, count)

	other, err := backend.Get([]byte("other"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), other)
}

func TestScan_Canceled(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	require.NoError(t, backend.Set(makeCorpusKey(0), []byte("v")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = backend.Scan(ctx, []byte(corpusPrefix), func(_, _ []byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexedKeys(t *testing.T) {
	tests := []struct {
		name  string
		index int
	}{
		{"zero", 0},
		{"small", 7},
		{"large", 1 << 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := makeLexicalRowKey(tt.index)
			got, err := parseIndexedKey(lexicalRowPrefix, key)
			require.NoError(t, err)
			assert.Equal(t, tt.index, got)
		})
	}

	_, err := parseIndexedKey(corpusPrefix, makeLexicalRowKey(1))
	assert.Error(t, err)
	assert.Less(t, string(makeCorpusKey(9)), string(makeCorpusKey(10)))
}
