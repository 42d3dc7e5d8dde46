package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chebykinn/browser-code/internal/config"
)

func TestWatchChangesSQLiteFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	require.NoError(t, WatchChanges(ctx, config.DatabaseConfig{Driver: "sqlite", SqlitePath: path}, "sqlite", func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	// Give the watcher goroutine a moment to register with the OS before
	// the write it needs to observe happens.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("xy"), 0o644))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a storage-change callback after writing the watched file")
	}
}

func TestWatchChangesUnknownDriverErrors(t *testing.T) {
	err := WatchChanges(context.Background(), config.DatabaseConfig{}, "mysql", func() {})
	require.Error(t, err)
}

func TestWatchChangesPostgresRequiresDSN(t *testing.T) {
	err := WatchChanges(context.Background(), config.DatabaseConfig{}, "postgres", func() {})
	require.Error(t, err)
}
