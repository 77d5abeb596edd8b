package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/michaelgiba/covered/internal/config"
	"github.com/michaelgiba/covered/internal/logging"
	"github.com/michaelgiba/covered/internal/media"
	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/services"
	"github.com/michaelgiba/covered/internal/store"
)

// TopicProcessor converts one topic into playback content. The manager owns
// persistence of the result; the processor only produces it.
type TopicProcessor interface {
	Process(ctx context.Context, topic media.Topic) (media.PlaybackContent, error)
}

// Manager drives background processing: it acquires one pending topic at a
// time, runs the processor, and persists the playback record. Acquisition
// follows the configured mode: queue pops are consume-and-forget, while
// reconciliation recomputes pending work from durable state each cycle and
// therefore survives worker crashes.
type Manager struct {
	cfg       *config.Config
	store     *store.Store
	queue     *queue.Queue
	processor TopicProcessor
	logger    *slog.Logger

	mode          config.WorkMode
	pollInterval  time.Duration
	retryInterval time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	processed int64
}

// NewManager constructs a workflow manager. The queue may be nil when the
// deployment runs in reconcile mode only.
func NewManager(cfg *config.Config, st *store.Store, q *queue.Queue, processor TopicProcessor, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:           cfg,
		store:         st,
		queue:         q,
		processor:     processor,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		mode:          cfg.Mode(),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if m.mode == config.ModeQueue && m.queue == nil {
		return errors.New("queue mode requires a queue")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runLoop(runCtx)
	}()
	return nil
}

// Stop terminates background processing and waits for the current cycle to
// finish. Cancellation is honored at cycle boundaries only.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// LastError reports the most recent cycle failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Processed reports how many topics finished since the manager was created.
func (m *Manager) Processed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed
}

func (m *Manager) runLoop(ctx context.Context) {
	m.logger.Info("worker started", logging.String("mode", string(m.mode)))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		progressed, err := m.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			m.sleep(ctx, m.retryInterval)
		case !progressed:
			m.sleep(ctx, m.pollInterval)
		}
	}
}

// RunOnce performs a single worker cycle: acquire at most one topic, process
// it, persist the playback. It reports whether a topic was handled; a false
// return with nil error means there was nothing to do.
func (m *Manager) RunOnce(ctx context.Context) (bool, error) {
	topic, ok, err := m.nextTopic(ctx)
	if err != nil {
		m.setLastError(err)
		m.logger.Error("failed to acquire next topic", logging.Error(err))
		return false, err
	}
	if !ok {
		return false, nil
	}

	topicCtx := services.WithTopicID(ctx, topic.ID)
	playback, err := m.processor.Process(topicCtx, topic)
	if err != nil {
		m.setLastError(err)
		if !errors.Is(err, context.Canceled) {
			logging.WithContext(topicCtx, m.logger).Error("topic processing failed",
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
			)
		}
		return true, err
	}

	if err := m.store.UpsertPlayback(ctx, topic.ID, playback); err != nil {
		m.setLastError(err)
		logging.WithContext(topicCtx, m.logger).Error("failed to persist playback", logging.Error(err))
		return true, err
	}

	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
	m.logger.Info("topic completed",
		logging.String(logging.FieldTopicID, topic.ID),
		logging.String("playback_id", playback.ID),
	)
	return true, nil
}

func (m *Manager) nextTopic(ctx context.Context) (media.Topic, bool, error) {
	switch m.mode {
	case config.ModeQueue:
		return m.nextFromQueue(ctx)
	default:
		return m.nextPending(ctx)
	}
}

// nextFromQueue pops an id and loads its topic. A pop is destructive: if the
// input has vanished or was already processed, the entry is simply dropped.
func (m *Manager) nextFromQueue(ctx context.Context) (media.Topic, bool, error) {
	var zero media.Topic
	for {
		topicID, ok, err := m.queue.Pop(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		topic, err := m.store.GetTopic(ctx, topicID)
		if err != nil {
			return zero, false, err
		}
		if topic == nil {
			m.logger.Warn("queue entry references unknown topic, dropping",
				logging.String(logging.FieldTopicID, topicID),
			)
			continue
		}
		if topic.HasPlayback() {
			m.logger.Debug("queue entry already processed, dropping",
				logging.String(logging.FieldTopicID, topicID),
			)
			continue
		}
		return *topic, true, nil
	}
}

func (m *Manager) nextPending(ctx context.Context) (media.Topic, bool, error) {
	var zero media.Topic
	topics, err := m.store.TopicsMissingPlayback(ctx)
	if err != nil {
		return zero, false, err
	}
	if len(topics) == 0 {
		return zero, false, nil
	}
	return topics[0], true, nil
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
