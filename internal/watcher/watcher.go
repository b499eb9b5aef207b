// Package watcher ingests files dropped into an inbox directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/extract"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
)

// Subdirectories of the inbox that receive handled files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// DefaultSettle is the quiet period used when Config.Settle is zero.
const DefaultSettle = 2 * time.Second

// Ingester runs one file through the pipeline.
type Ingester interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
}

// Config configures the inbox.
type Config struct {
	InboxDir string
	// Settle is how long a file must go without create or write events before it is ingested.
	Settle time.Duration
}

// Watcher debounces inbox events and ingests settled files one at a time.
type Watcher struct {
	ingester Ingester
	cfg      Config
	logger   *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
}

// New creates a Watcher and the processed/ and failed/ subdirectories.
func New(ingester Ingester, cfg Config, logger *zap.Logger) (*Watcher, error) {
	if cfg.InboxDir == "" {
		return nil, errors.New("watcher: inbox directory is required")
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, dir := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(cfg.InboxDir, dir), 0o750); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", dir, err)
		}
	}
	return &Watcher{
		ingester: ingester,
		cfg:      cfg,
		logger:   logger.With(zap.String("inbox", cfg.InboxDir)),
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}, nil
}

// Run watches the inbox until ctx is cancelled. Files already present at
// start are picked up as if they had just been written.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.cfg.InboxDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.InboxDir, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()

	if err := w.scanExisting(ctx); err != nil {
		w.logger.Warn("Initial inbox scan failed", zap.Error(err))
	}
	w.logger.Info("Watching inbox", zap.Duration("settle", w.cfg.Settle))

	defer func() {
		w.stopTimers()
		wg.Wait()
		w.logger.Info("Inbox watcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.accept(ev); ok {
				w.schedule(ctx, path)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

// accept keeps create and write events on visible regular files.
func (w *Watcher) accept(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.cfg.Settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.cfg.Settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) scanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.InboxDir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			w.schedule(ctx, filepath.Join(w.cfg.InboxDir, e.Name()))
		}
	}
	return nil
}

func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.ready:
			w.process(ctx, path)
		}
	}
}

// process ingests one settled file and moves it to processed/ or failed/.
// A file whose ingestion was interrupted by shutdown stays in the inbox.
func (w *Watcher) process(ctx context.Context, path string) {
	name := filepath.Base(path)
	log := w.logger.With(zap.String("file_name", name))

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return
	}
	if !extract.HasKnownExtension(name) {
		log.Warn("Skipping file with unsupported extension")
		w.move(path, FailedDir, log)
		return
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the watched inbox
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		log.Error("Open inbox file", zap.Error(err))
		return
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		log.Error("Stat inbox file", zap.Error(err))
		return
	}
	if info.Size() == 0 {
		_ = f.Close()
		log.Warn("Skipping empty file")
		w.move(path, FailedDir, log)
		return
	}

	res, err := w.ingester.Ingest(ctx, ingestuc.Request{
		Reader:      f,
		FileName:    name,
		ContentType: extract.ContentTypeFor(name),
		Size:        info.Size(),
	})
	_ = f.Close()

	switch {
	case err != nil && ctx.Err() != nil:
		log.Info("Ingestion interrupted, file left in inbox", zap.Error(err))
	case err != nil || res.Status != document.StatusIndexed:
		log.Warn("Inbox file failed", zap.String("document_id", res.DocumentID), zap.Error(err))
		w.move(path, FailedDir, log)
	default:
		log.Info("Inbox file indexed",
			zap.String("document_id", res.DocumentID),
			zap.Int("chunks", res.ChunkCount),
		)
		w.move(path, ProcessedDir, log)
	}
}

func (w *Watcher) move(path, dir string, log *zap.Logger) {
	dest := uniquePath(filepath.Join(w.cfg.InboxDir, dir, filepath.Base(path)))
	if err := os.Rename(path, dest); err != nil {
		log.Error("Move inbox file", zap.String("dest", dest), zap.Error(err))
	}
}

// uniquePath appends a numeric suffix before the extension while path exists.
func uniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := base + "-" + strconv.Itoa(i) + ext
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
}
