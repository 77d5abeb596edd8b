// Package store persists curated inputs and their playback bundles in
// SQLite and derives the pending-work set as the difference between the two
// tables. A topic is "done" exactly when a playback row references it.
package store
