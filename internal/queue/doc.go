// Package queue implements the durable work queue that hands topic ids from
// ingestion to the processing worker, with strict FIFO order and
// exactly-once delivery per entry.
package queue
