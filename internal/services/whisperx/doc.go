// Package whisperx wraps the whisperx binary for timed transcription of
// synthesized narration.
package whisperx
