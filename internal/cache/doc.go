// Package cache persists discovered devices between runs.
//
// The cache is a single JSON file (devices.json) under the axectl cache
// directory. Discovery consults it for quick re-probes of already-known
// addresses and writes every merged result back; the monitor records stats
// snapshots into it on each tick.
//
// Cache failures are never fatal: a missing or corrupt file loads as an
// empty snapshot, and write failures are reported to the caller to log and
// ignore.
package cache
