// Package api serves the topics feed, ingest submission endpoints, and the
// static playback artifacts under /data.
package api
