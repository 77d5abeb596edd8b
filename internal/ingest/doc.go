// Package ingest downloads raw inbox items, filters them against the
// monotonic cursor, curates them into topic records, and makes them visible
// to the processing worker through the store and the durable queue.
package ingest
