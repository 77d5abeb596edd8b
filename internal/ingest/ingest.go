package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/michaelgiba/covered/internal/logging"
	"github.com/michaelgiba/covered/internal/media"
	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/store"
)

// Service runs ingestion cycles: download raw items, filter against the
// cursor, curate each accepted item, persist it, and enqueue it for the
// worker.
type Service struct {
	mailbox   Mailbox
	extractor TopicExtractor
	store     *store.Store
	queue     *queue.Queue
	cursor    *CursorTracker
	logger    *slog.Logger
}

// Stats summarizes one ingestion cycle.
type Stats struct {
	Fetched  int
	Accepted int
	Skipped  int
	Errors   int
}

// NewService constructs an ingestion service. queue may be nil when the
// deployment relies on reconciliation alone.
func NewService(mailbox Mailbox, extractor TopicExtractor, st *store.Store, q *queue.Queue, cursor *CursorTracker, logger *slog.Logger) *Service {
	return &Service{
		mailbox:   mailbox,
		extractor: extractor,
		store:     st,
		queue:     q,
		cursor:    cursor,
		logger:    logging.NewComponentLogger(logger, "ingest"),
	}
}

// Run executes one ingestion cycle. The cursor advances to the maximum
// accepted timestamp, and only when at least one item was accepted, so a
// crash before the save re-offers the same items on the next cycle.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	items, err := s.mailbox.FetchRecent(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch raw items: %w", err)
	}
	stats.Fetched = len(items)

	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp < items[j].Timestamp
	})

	cursorValue, hasCursor := s.cursor.Load()
	cursorTime, cursorParsed := media.ParseTimestamp(cursorValue)

	var latest string
	var latestTime time.Time
	for _, item := range items {
		itemTime, ok := media.ParseTimestamp(item.Timestamp)
		if !ok {
			s.logger.Warn("skipping item with unusable timestamp",
				logging.String("raw_id", item.ID),
				logging.String("timestamp", item.Timestamp),
			)
			stats.Skipped++
			continue
		}
		// Strictly newer than the cursor; equal timestamps count as seen.
		if hasCursor && cursorParsed && !itemTime.After(cursorTime) {
			stats.Skipped++
			continue
		}

		input := Curate(ctx, s.extractor, item)
		if err := s.store.UpsertInput(ctx, input); err != nil {
			s.logger.Error("failed to persist curated input",
				logging.String("raw_id", item.ID),
				logging.Error(err),
			)
			stats.Errors++
			continue
		}
		if s.queue != nil {
			if err := s.queue.Push(ctx, input.ID); err != nil {
				s.logger.Error("failed to enqueue topic",
					logging.String(logging.FieldTopicID, input.ID),
					logging.Error(err),
				)
				stats.Errors++
				continue
			}
		}

		stats.Accepted++
		if latest == "" || itemTime.After(latestTime) {
			latest = item.Timestamp
			latestTime = itemTime
		}
	}

	if stats.Accepted > 0 && latest != "" {
		if err := s.cursor.Save(latest); err != nil {
			return stats, fmt.Errorf("save cursor: %w", err)
		}
	}

	s.logger.Info("ingestion cycle completed",
		logging.Int("fetched", stats.Fetched),
		logging.Int("accepted", stats.Accepted),
		logging.Int("skipped", stats.Skipped),
		logging.Int("errors", stats.Errors),
		logging.Duration("duration", time.Since(start)),
	)
	return stats, nil
}
