package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/michaelgiba/covered/internal/api"
	"github.com/michaelgiba/covered/internal/config"
	"github.com/michaelgiba/covered/internal/ingest"
	"github.com/michaelgiba/covered/internal/logging"
	"github.com/michaelgiba/covered/internal/preflight"
	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/store"
	"github.com/michaelgiba/covered/internal/workflow"
)

const shutdownGrace = 10 * time.Second

// Components holds the long-running services the daemon supervises. Ingest
// and API are optional; store and workflow are not.
type Components struct {
	Store    *store.Store
	Queue    *queue.Queue
	Workflow *workflow.Manager
	Ingest   *ingest.Scheduler
	API      *api.Server
}

// Daemon supervises the ingestion scheduler, the worker, and the API server,
// and enforces single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comp   Components

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon around pre-wired components.
func New(cfg *config.Config, comp Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || comp.Store == nil || comp.Workflow == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "covered.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		comp:     comp,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches all supervised services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another covered daemon instance is already running")
	}

	for _, check := range preflight.RunLocal(d.cfg) {
		if !check.Passed {
			d.logger.Warn("preflight check failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail),
			)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.comp.API != nil {
		if err := d.comp.API.Start(); err != nil {
			d.release()
			return fmt.Errorf("start api server: %w", err)
		}
	}
	if err := d.comp.Workflow.Start(runCtx); err != nil {
		d.shutdownAPI()
		d.release()
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.comp.Ingest != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.comp.Ingest.Run(runCtx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("mode", string(d.cfg.Mode())),
	)
	return nil
}

// Stop winds down all services and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.comp.Workflow.Stop()
	d.shutdownAPI()
	d.release()
	d.running.Store(false)

	d.logStats()
	d.logger.Info("daemon stopped")
}

// Run starts the daemon and blocks until ctx is cancelled or the configured
// maximum run duration elapses.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()

	var maxRun <-chan time.Time
	if seconds := d.cfg.Workflow.MaxRunDurationSecond; seconds > 0 {
		timer := time.NewTimer(time.Duration(seconds) * time.Second)
		defer timer.Stop()
		maxRun = timer.C
	}

	select {
	case <-ctx.Done():
	case <-maxRun:
		d.logger.Info("maximum run duration reached, shutting down")
	}
	return nil
}

// Close stops the daemon and releases storage handles.
func (d *Daemon) Close() error {
	d.Stop()
	var firstErr error
	if d.comp.Queue != nil {
		if err := d.comp.Queue.Close(); err != nil {
			firstErr = err
		}
	}
	if err := d.comp.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (d *Daemon) shutdownAPI() {
	if d.comp.API == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := d.comp.API.Shutdown(ctx); err != nil {
		d.logger.Warn("api shutdown incomplete", logging.Error(err))
	}
}

func (d *Daemon) release() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

func (d *Daemon) logStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stats, err := d.comp.Store.Stats(ctx)
	if err != nil {
		d.logger.Warn("failed to read final stats", logging.Error(err))
		return
	}
	d.logger.Info("final stats",
		logging.Int("inputs", stats.Inputs),
		logging.Int("playback", stats.Playback),
		logging.Int("pending", stats.Pending),
		logging.Int64("processed_this_run", d.comp.Workflow.Processed()),
	)
}
