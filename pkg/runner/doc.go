// Package runner provides the host-side drain for run streams: Collect
// aggregates a finished run into an Outcome, and Runner couples a tree
// to a presentation Handler (text or NDJSON) with optional recording.
package runner
