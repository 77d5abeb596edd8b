// Package tts provides the speech synthesis client that narrates polished
// scripts into WAV audio.
package tts
