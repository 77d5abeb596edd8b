package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/michaelgiba/covered/internal/logging"
)

// Scheduler runs the ingestion service on a fixed interval until its context
// is cancelled. The first cycle runs immediately.
type Scheduler struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler wraps a service with interval scheduling.
func NewScheduler(service *Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "ingest-scheduler"),
	}
}

// Run blocks until ctx is cancelled. Cycle errors are logged and the next
// cycle proceeds on schedule.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.service.Run(ctx); err != nil {
			s.logger.Error("ingestion cycle failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check mailbox connectivity and credentials"),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
