package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/michaelgiba/covered/internal/media"
)

// UpsertInput stores a curated input record. Replaying the same id is legal
// and overwrites the row; ingestion treats inputs as immutable once written.
func (s *Store) UpsertInput(ctx context.Context, input media.ProcessedInput) error {
	if problem := input.Validate(); problem != "" {
		return fmt.Errorf("upsert input: %s", problem)
	}
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	err = s.execWithRetry(
		ctx,
		`INSERT OR REPLACE INTO processed_inputs (id, timestamp, data) VALUES (?, ?, ?)`,
		input.ID,
		input.Timestamp,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert input: %w", err)
	}
	return nil
}

// GetInput fetches a curated input by id, returning nil when absent.
func (s *Store) GetInput(ctx context.Context, id string) (*media.ProcessedInput, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT data FROM processed_inputs WHERE id = ?`, id)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get input: %w", err)
	}
	input, err := decodeInput(data)
	if err != nil {
		return nil, err
	}
	return &input, nil
}

// UpsertPlayback stores the playback bundle for a topic. The unique index on
// processed_input_id makes a repeat write for the same topic replace the
// previous bundle instead of stranding a duplicate row.
func (s *Store) UpsertPlayback(ctx context.Context, topicID string, playback media.PlaybackContent) error {
	if strings.TrimSpace(playback.ID) == "" {
		return errors.New("upsert playback: id is required")
	}
	if strings.TrimSpace(topicID) == "" {
		return errors.New("upsert playback: topic id is required")
	}
	playback.ProcessedInputID = topicID
	data, err := json.Marshal(playback)
	if err != nil {
		return fmt.Errorf("marshal playback: %w", err)
	}
	err = s.execWithRetry(
		ctx,
		`INSERT INTO playback_content (id, processed_input_id, data) VALUES (?, ?, ?)
         ON CONFLICT(processed_input_id) DO UPDATE SET id = excluded.id, data = excluded.data`,
		playback.ID,
		topicID,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert playback: %w", err)
	}
	return nil
}

// GetTopic assembles the read-model topic for one input id, returning nil
// when the input does not exist.
func (s *Store) GetTopic(ctx context.Context, id string) (*media.Topic, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `
        SELECT pi.data, pc.data
        FROM processed_inputs pi
        LEFT JOIN playback_content pc ON pi.id = pc.processed_input_id
        WHERE pi.id = ?`, id)

	topic, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return topic, nil
}

// TopicsMissingPlayback derives the pending-work set: every input with no
// playback row, oldest first so no topic is starved.
func (s *Store) TopicsMissingPlayback(ctx context.Context) ([]media.Topic, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT pi.data, NULL
        FROM processed_inputs pi
        LEFT JOIN playback_content pc ON pi.id = pc.processed_input_id
        WHERE pc.id IS NULL
        ORDER BY pi.timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending topics: %w", err)
	}
	defer rows.Close()
	return collectTopics(rows)
}

// AllTopics returns the full feed, newest first, with playback attached
// where it exists.
func (s *Store) AllTopics(ctx context.Context) ([]media.Topic, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT pi.data, pc.data
        FROM processed_inputs pi
        LEFT JOIN playback_content pc ON pi.id = pc.processed_input_id
        ORDER BY pi.timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("query all topics: %w", err)
	}
	defer rows.Close()
	return collectTopics(rows)
}

func collectTopics(rows *sql.Rows) ([]media.Topic, error) {
	var topics []media.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

func scanTopic(scanner interface{ Scan(dest ...any) error }) (*media.Topic, error) {
	var (
		inputData    string
		playbackData sql.NullString
	)
	if err := scanner.Scan(&inputData, &playbackData); err != nil {
		return nil, err
	}

	input, err := decodeInput(inputData)
	if err != nil {
		return nil, err
	}

	topic := &media.Topic{
		ID:             input.ID,
		Timestamp:      input.Timestamp,
		ProcessedInput: input,
	}
	if playbackData.Valid && playbackData.String != "" {
		var playback media.PlaybackContent
		if err := json.Unmarshal([]byte(playbackData.String), &playback); err != nil {
			return nil, fmt.Errorf("decode playback: %w", err)
		}
		topic.PlaybackContent = &playback
	}
	return topic, nil
}

func decodeInput(data string) (media.ProcessedInput, error) {
	var input media.ProcessedInput
	if err := json.Unmarshal([]byte(data), &input); err != nil {
		return media.ProcessedInput{}, fmt.Errorf("decode input: %w", err)
	}
	return input, nil
}
