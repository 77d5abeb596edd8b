// Package logging constructs the process-wide slog logger and provides the
// shared attribute helpers and context-derived fields used across covered.
package logging
