// Package services holds the error taxonomy and context plumbing shared by
// the external collaborator clients (llm, browser, tts, whisperx, ffmpeg).
package services
