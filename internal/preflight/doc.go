// Package preflight provides readiness checks for the filesystem paths and
// correction endpoint an attempt depends on.
//
// "eccorun preflight" prints every result; "eccorun run" refuses to start
// when a required check fails so a batch slot is not spent on a doomed
// attempt.
package preflight
