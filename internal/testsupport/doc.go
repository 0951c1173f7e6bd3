// Package testsupport holds fixtures shared by package tests: temp-dir
// configurations, gzip JSONL inputs and ledger files.
package testsupport
