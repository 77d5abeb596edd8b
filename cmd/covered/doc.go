// Package main hosts the covered CLI entrypoint and command graph.
//
// The Cobra-based command tree covers daemon startup, one-shot mailbox
// ingestion, queue maintenance, topic listing, and configuration
// scaffolding. It centralizes configuration resolution and logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
