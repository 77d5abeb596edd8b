// Package preflight verifies the runtime prerequisites of the enrichment
// pipeline: writable directories, external binaries, and API credentials.
// The daemon runs the local subset at startup and logs failures without
// refusing to start; the CLI status command runs the full set.
package preflight
