package media

import (
	"strings"
	"time"
)

// ProcessedInput is a curated topic's source material. Rows are written once
// by ingestion and never mutated afterwards.
type ProcessedInput struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	ExtractedLink string `json:"extracted_link,omitempty"`
	Sender        string `json:"sender,omitempty"`
}

// PlaybackContent is the artifact bundle produced for one topic.
type PlaybackContent struct {
	ID               string `json:"id"`
	ProcessedInputID string `json:"processed_input_id"`
	PageSnapshotURL  string `json:"page_snapshot_url"`
	ThumbnailURL     string `json:"thumbnail_url,omitempty"`
	ScriptJSONURL    string `json:"script_json_url"`
	AudioFileURL     string `json:"audio_file_url"`
}

// Topic pairs a curated input with its playback bundle when one exists.
// It is assembled at read time, never persisted on its own.
type Topic struct {
	ID              string           `json:"id"`
	Timestamp       string           `json:"timestamp"`
	ProcessedInput  ProcessedInput   `json:"processed_input"`
	PlaybackContent *PlaybackContent `json:"playback_content,omitempty"`
}

// HasPlayback reports whether the topic's enrichment has completed.
func (t Topic) HasPlayback() bool {
	return t.PlaybackContent != nil
}

// TranscriptSegment is one timed span of synthesized speech.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript holds segment-level timings produced from the synthesized audio.
type Transcript struct {
	Language string              `json:"language,omitempty"`
	Segments []TranscriptSegment `json:"segments"`
}

// ScriptDocument is the combined script+transcript artifact written as
// script.json inside a playback directory.
type ScriptDocument struct {
	Text       string     `json:"text"`
	Transcript Transcript `json:"transcript"`
}

// ParseTimestamp parses the RFC 3339 timestamp carried by inputs and topics.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Validate reports the first structural problem with an input, if any.
func (p ProcessedInput) Validate() string {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return "id is required"
	case strings.TrimSpace(p.Timestamp) == "":
		return "timestamp is required"
	case strings.TrimSpace(p.Title) == "":
		return "title is required"
	default:
		if _, ok := ParseTimestamp(p.Timestamp); !ok {
			return "timestamp is not RFC 3339"
		}
		return ""
	}
}
