// Package daemon supervises the covered services: ingestion, the worker,
// and the HTTP API, with single-instance locking.
package daemon
