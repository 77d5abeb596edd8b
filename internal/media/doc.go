// Package media defines the domain model shared across ingestion, the
// processing pipeline, persistence, and the HTTP API: curated inputs,
// playback bundles, and the read-model Topic that joins them.
package media
