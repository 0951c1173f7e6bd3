// Package main hosts the eccorun CLI entrypoint and command graph.
//
// The Cobra-based command tree runs one attempt of one shard ("run"),
// reports ledger progress ("status"), plans scheduler submissions
// ("schedule"), checks readiness ("preflight") and scaffolds configuration
// ("config"). It centralizes configuration resolution and logging setup so
// subcommands stay declarative; the protocol itself lives in internal/.
package main
