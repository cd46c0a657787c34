package biz

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/pkg/infra/pool"
)

type recordingIngester struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingIngester) IngestFile(_ context.Context, path string) (*IngestResult, error) {
	r.mu.Lock()
	r.paths = append(r.paths, filepath.Base(path))
	r.mu.Unlock()
	return &IngestResult{ID: DocumentID(filepath.Base(path))}, nil
}

func (r *recordingIngester) Supported(name string) bool {
	return filepath.Ext(name) == ".txt"
}

func (r *recordingIngester) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_IngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingIngester{}

	p, err := pool.NewPool("test-ingest", pool.IngestPool, pool.IngestPoolConfig())
	require.NoError(t, err)
	defer p.Release()

	w := NewWatcher(dir, rec, p)
	w.settle = 50 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0o600))

	assert.Eventually(t, func() bool { return len(rec.seen()) == 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.Equal(t, []string{"notes.txt"}, rec.seen())
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "absent"), &recordingIngester{}, nil)
	assert.Error(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop(context.Background()))
}
