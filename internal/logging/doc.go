// Package logging assembles structured slog loggers and formatting helpers used
// across the worker, the monitor, and the CLI.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so attempt code automatically
// tags log lines with the shard rank, attempt id, and record url. When an
// attempt log file is configured, records are fanned out to both the console
// and a JSON file named after the attempt so operators can read one attempt's
// history after the scheduler has requeued it.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
