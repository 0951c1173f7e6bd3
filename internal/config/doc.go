// Package config loads, normalizes, and validates eccorun configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SLURM_JOB_ID for the attempt id and ECCORUN_API_KEY for the correction
// endpoint. The Config type centralizes every knob the worker, the monitor,
// and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
