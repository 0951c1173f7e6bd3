// Package services defines shared utilities consumed by the attempt runner,
// the ledger backends, and the correction client.
//
// Key responsibilities:
//   - Context helpers that stamp the shard rank, attempt id, and record url
//     for structured logging.
//   - Structured error markers plus the Wrap helper that let the runner tell
//     fatal failures (malformed input, ledger writes) from per-record ones.
//
// Use these helpers when wiring new components so error classification and
// log fields stay uniform across the worker.
package services
