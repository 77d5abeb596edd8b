// Package pipeline turns curated topics into playback artifacts: a page
// snapshot, a polished narration script, synthesized audio, and a timed
// transcript, all written under a per-playback media directory.
package pipeline
