package application

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultImportPollInterval = 30 * time.Second

// ImportWatcher re-imports the external CLI's credentials file into one
// account whenever it changes, keeping a linked account in step with logins
// performed in the external tool. fsnotify provides the fast path; polling
// covers filesystems without event support.
type ImportWatcher struct {
	// PollInterval may be lowered before Start; it defaults to 30s.
	PollInterval time.Duration

	path      string
	accountID domain.AccountID
	lifecycle *Lifecycle
	logger    zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastMod time.Time
}

func NewImportWatcher(path string, accountID domain.AccountID, lifecycle *Lifecycle, logger zerolog.Logger) *ImportWatcher {
	return &ImportWatcher{
		PollInterval: defaultImportPollInterval,
		path:         filepath.Clean(path),
		accountID:    accountID,
		lifecycle:    lifecycle,
		logger:       logger,
	}
}

// Start begins watching. Only changes after Start trigger a re-import; the
// initial import stays an explicit user action. Starting a running watcher
// is a no-op.
func (w *ImportWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return
	}

	if info, err := os.Stat(w.path); err == nil {
		w.lastMod = info.ModTime()
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go w.run(runCtx, done)
}

// Stop cancels the watch loop and waits for it to drain. Stopping a stopped
// watcher is a no-op.
func (w *ImportWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (w *ImportWatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Watch the parent directory: the external CLI replaces the file by
	// rename, which silently drops a watch registered on the file itself.
	var events <-chan fsnotify.Event
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(filepath.Dir(w.path)); err == nil {
			events = watcher.Events
		} else {
			w.logger.Debug().Err(err).Str("path", w.path).Msg("fsnotify unavailable, polling only")
		}
	}

	interval := w.PollInterval
	if interval <= 0 {
		interval = defaultImportPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.checkAndImport(ctx)
		case <-ticker.C:
			w.checkAndImport(ctx)
		}
	}
}

func (w *ImportWatcher) checkAndImport(ctx context.Context) {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}

	w.mu.Lock()
	changed := info.ModTime().After(w.lastMod)
	if changed {
		w.lastMod = info.ModTime()
	}
	w.mu.Unlock()

	if !changed {
		return
	}

	imported, err := w.lifecycle.Import(ctx, w.accountID)
	if err != nil {
		w.logger.Error().Err(err).Str("account", string(w.accountID)).Msg("re-import failed")
		return
	}
	if imported {
		w.logger.Info().Str("account", string(w.accountID)).Msg("external credentials re-imported")
	}
}
