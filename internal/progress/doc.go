// Package progress carries run progress events from month workers to sinks.
// Workers emit through a non-blocking Hub that batches events on a background
// goroutine; the Tracker sink folds them into a per-month snapshot served by
// the ops API.
package progress
