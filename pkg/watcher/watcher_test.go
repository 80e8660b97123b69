package watcher_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walteh/semdelta/pkg/watcher"
)

func start(t *testing.T, path string) <-chan struct{} {
	t.Helper()
	w, err := watcher.New(watcher.Config{Path: path, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start(context.Background())
	require.NoError(t, err)
	return onChange
}

func TestDebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{ .A }}"), 0o644))

	onChange := start(t, path)

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("{{ .A%d }}", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(time.Second):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.tmpl")
	other := filepath.Join(dir, "other.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{ .A }}"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("{{ .B }}"), 0o644))

	onChange := start(t, path)

	require.NoError(t, os.WriteFile(other, []byte("{{ .C }}"), 0o644))

	select {
	case <-onChange:
		t.Fatal("unexpected notification for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMissingDirectory(t *testing.T) {
	w, err := watcher.New(watcher.Config{Path: filepath.Join(t.TempDir(), "absent", "page.tmpl")})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "watching directory")
}
