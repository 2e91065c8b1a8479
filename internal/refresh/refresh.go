// Package refresh drives the periodic sync → import → rebuild cycle and the
// views-file watcher. Rebuilds are single-writer: one cycle at a time, with
// the previous view table kept in service whenever anything fails.
package refresh

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"orgcal/internal/config"
	"orgcal/internal/gitsync"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/orgimport"
	"orgcal/internal/store"
	"orgcal/internal/view"
)

var logger = appLog.Named("refresh")

// debounceDelay coalesces rapid file events (e.g. a git reset touching
// several files) into a single rebuild.
const debounceDelay = 200 * time.Millisecond

// Refresher owns the write side of the view table and the record store.
type Refresher struct {
	cfg   *config.Config
	store *store.SQLiteStore
	views *view.Holder

	// cycleMu serializes cycles: the cron schedule, the watcher and the
	// admin trigger may all fire concurrently.
	cycleMu sync.Mutex

	failures atomic.Int64 // rebuild failures since the last good rebuild
}

func New(cfg *config.Config, st *store.SQLiteStore, views *view.Holder) *Refresher {
	return &Refresher{cfg: cfg, store: st, views: views}
}

// Failures returns the number of rebuild failures since the last successful
// rebuild. Surfaced on /admin/views as an operator signal.
func (r *Refresher) Failures() int64 { return r.failures.Load() }

// RunCycle performs one full cycle: sync the repo, re-import the org files,
// rebuild the view table. Each stage failure is logged and recorded; later
// stages still run where that is safe, so a broken extractor does not stop
// view definitions from refreshing.
func (r *Refresher) RunCycle(ctx context.Context) error {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	snap := gitsync.Sync(ctx, r.cfg.Repo)
	if err := r.store.RecordSnapshot(ctx, snap); err != nil {
		logger.Error("failed to record sync snapshot", err)
	}

	var firstErr error
	if snap.Status == model.SnapshotSuccess {
		if err := r.importLocked(ctx, true); err != nil {
			firstErr = err
		}
	} else {
		firstErr = fmt.Errorf("repo sync failed: %s", snap.Log)
		logger.Warn("repo sync failed, serving existing records")
	}

	if err := r.rebuildLocked(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Import re-extracts all org files. With replace set the record set is
// wiped first; otherwise the extracted records are appended. Exposed for
// the admin import trigger.
func (r *Refresher) Import(ctx context.Context, replace bool) error {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()
	return r.importLocked(ctx, replace)
}

func (r *Refresher) importLocked(ctx context.Context, replace bool) error {
	tasks, err := orgimport.ExtractAll(ctx, r.cfg)
	if err != nil {
		logger.Error("org extraction failed, keeping existing records", err)
		return err
	}
	if replace {
		err = r.store.ReplaceTasks(ctx, tasks)
	} else {
		err = r.store.InsertTasks(ctx, tasks)
	}
	if err != nil {
		logger.Error("record import failed", err)
		return err
	}
	logger.Info("records imported", "count", len(tasks), "replace", replace)
	return nil
}

// RebuildViews re-parses the views file and swaps the table on success. On
// any failure the last-known-good table stays in place; the failure is an
// operator concern, never an end-user one.
func (r *Refresher) RebuildViews() error {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()
	return r.rebuildLocked()
}

func (r *Refresher) rebuildLocked() error {
	path := r.cfg.ViewsPath()
	data, err := os.ReadFile(path)
	if err != nil {
		r.failures.Add(1)
		logger.Error("cannot read views file, keeping current table", err, "path", path)
		return err
	}

	table, err := view.Rebuild(string(data))
	if err != nil {
		r.failures.Add(1)
		logger.Error("view rebuild failed, keeping current table", err, "path", path)
		return err
	}

	r.views.Store(table)
	r.failures.Store(0)
	logger.Info("views rebuilt", "views", table.Len())
	return nil
}

// Run starts the cron schedule and the views-file watcher and blocks until
// ctx is canceled.
func (r *Refresher) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(r.cfg.SyncCron, func() {
		if err := r.RunCycle(ctx); err != nil {
			logger.Error("scheduled cycle finished with errors", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", r.cfg.SyncCron, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	if err := r.watchViews(ctx); err != nil {
		logger.Error("views watcher unavailable, relying on schedule only", err)
		<-ctx.Done()
	}
	return nil
}

// watchViews rebuilds the table when the views file changes, debounced.
// The parent directory is watched because git replaces files wholesale.
func (r *Refresher) watchViews(ctx context.Context) error {
	path := r.cfg.ViewsPath()
	dir := filepath.Dir(path)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return err
	}

	var mu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() {
			if err := r.RebuildViews(); err != nil {
				logger.Error("rebuild after file change failed", err)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("views watcher error", err)
		}
	}
}
