package biz

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/kart-io/knowledge-clone/pkg/infra/pool"
)

// defaultSettleDelay 同一文件的连续写事件在此时间内合并为一次导入。
const defaultSettleDelay = 500 * time.Millisecond

// FileIngester 导入磁盘文件。
type FileIngester interface {
	IngestFile(ctx context.Context, path string) (*IngestResult, error)
	Supported(filename string) bool
}

// Watcher 监听目录，新建或写入的文件在导入池中后台导入。
type Watcher struct {
	dir      string
	ingester FileIngester
	pool     *pool.Pool
	settle   time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending map[string]struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher 创建目录监听器。
func NewWatcher(dir string, ingester FileIngester, p *pool.Pool) *Watcher {
	return &Watcher{
		dir:      dir,
		ingester: ingester,
		pool:     p,
		settle:   defaultSettleDelay,
		pending:  make(map[string]struct{}),
	}
}

// Name implements server.Runnable.
func (w *Watcher) Name() string {
	return "watcher"
}

// Start implements server.Runnable.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.mu.Lock()
	w.watcher = fw
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(runCtx)
	logger.Infow("Watching directory for documents", "dir", w.dir)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.ingester.Supported(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Directory watcher error", "dir", w.dir, "error", err.Error())
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	if _, ok := w.pending[path]; ok {
		w.mu.Unlock()
		return
	}
	w.pending[path] = struct{}{}
	w.wg.Add(1)
	w.mu.Unlock()

	time.AfterFunc(w.settle, func() {
		task := func() {
			defer w.wg.Done()
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			w.ingest(ctx, path)
		}
		if w.pool == nil {
			task()
			return
		}
		if err := w.pool.Submit(task); err != nil {
			logger.Warnw("Ingest pool rejected task, running inline", "path", path, "error", err.Error())
			task()
		}
	})
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	res, err := w.ingester.IngestFile(ctx, path)
	if err != nil {
		logger.Errorw("Background ingest failed", "path", filepath.Base(path), "error", err.Error())
		return
	}
	logger.Infow("Background ingest completed", "path", filepath.Base(path), "id", res.ID)
}

// Stop implements server.Runnable. 等待已排队的导入完成或 ctx 结束。
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	fw, cancel, done := w.watcher, w.cancel, w.done
	w.mu.Unlock()
	if fw == nil {
		return nil
	}

	err := fw.Close()
	<-done

	waited := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		err = ctx.Err()
	}
	cancel()
	return err
}
