// Package llm provides the chat completion client used for email curation
// and narration script polishing.
package llm
