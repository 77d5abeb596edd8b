// Package ffmpeg wraps the ffmpeg binary for audio transcoding.
package ffmpeg
