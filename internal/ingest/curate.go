package ingest

import (
	"context"
	"strings"

	"github.com/michaelgiba/covered/internal/media"
)

// TopicExtractor turns a raw item into curated topic fields. Implementations
// may call an external model; failures are tolerated by falling back to a
// deterministic derivation from the raw item itself.
type TopicExtractor interface {
	ExtractTopic(ctx context.Context, subject, body, sender string) (title, content, link string, err error)
}

// Curate produces the ProcessedInput for a raw item. The id and timestamp
// always come from the raw item; only title, content, and link are delegated
// to the extractor.
func Curate(ctx context.Context, extractor TopicExtractor, item RawItem) media.ProcessedInput {
	input := fallbackInput(item)
	if extractor == nil {
		return input
	}

	title, content, link, err := extractor.ExtractTopic(ctx, item.Subject, item.Body, item.Sender)
	if err != nil {
		return input
	}
	if title = strings.TrimSpace(title); title != "" {
		input.Title = title
	}
	if content = strings.TrimSpace(content); content != "" {
		input.Content = content
	}
	if link = strings.TrimSpace(link); link != "" {
		input.ExtractedLink = link
	}
	return input
}

func fallbackInput(item RawItem) media.ProcessedInput {
	title := strings.TrimSpace(item.Subject)
	if title == "" {
		title = "(No Subject)"
	}
	sender := strings.TrimSpace(item.Sender)
	if sender == "" {
		sender = "Anonymous"
	}
	return media.ProcessedInput{
		ID:        item.ID,
		Timestamp: item.Timestamp,
		Title:     title,
		Content:   item.Body,
		Sender:    sender,
	}
}
