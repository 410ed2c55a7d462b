// Package watch re-runs the doctor whenever Markdown under the docs root changes.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/openkit/internal/kernel"
	"github.com/starford/openkit/internal/storage"
)

// DefaultDebounce is how long the watcher waits for a burst of changes to
// settle before re-running the doctor.
const DefaultDebounce = 200 * time.Millisecond

// Doctor runs one health check. *kernel.Service implements it.
type Doctor interface {
	Doctor(ctx context.Context, write bool) (*kernel.DoctorRun, error)
}

// Callback is called after every completed run.
type Callback func(run *kernel.DoctorRun)

// Option configures Watch.
type Option func(*settings)

type settings struct {
	debounce time.Duration
	write    bool
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(s *settings) {
		s.debounce = d
	}
}

// WithWrite persists the health file on every run.
func WithWrite(write bool) Option {
	return func(s *settings) {
		s.write = write
	}
}

// Watch runs d once, then watches docsRoot recursively and runs d again
// after each debounced burst of Markdown changes until ctx is cancelled.
// Every completed run is passed to cb (if non-nil). A failing run is logged
// and does not stop the watcher; the docs may be mid-edit.
func Watch(ctx context.Context, d Doctor, docsRoot string, logger *slog.Logger, cb Callback, opts ...Option) error {
	cfg := settings{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, docsRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", docsRoot))

	run := func() {
		res, err := d.Doctor(ctx, cfg.write)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("watcher: doctor failed", slog.String("error", err.Error()))
			}
			return
		}
		logger.Info("watcher: doctor completed",
			slog.Int("score", res.Result.Report.Score),
			slog.String("status", res.Result.Report.Status),
			slog.Int("broken", len(res.Result.Broken)),
		)
		if cb != nil {
			cb(res)
		}
	}

	run()

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(cfg.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(cfg.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			run()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					schedule()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, storage.MarkdownExt) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: change",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
