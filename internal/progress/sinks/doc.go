// Package sinks implements progress consumers other than the in-memory tracker.
package sinks
