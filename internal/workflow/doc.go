// Package workflow coordinates the background worker that turns pending
// topics into playback content, one topic at a time.
package workflow
