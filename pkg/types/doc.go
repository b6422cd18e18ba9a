// Package types defines the core data structures for the system-test executor.
//
// This package contains the fundamental types shared by the orchestrator and
// its workers, including:
//   - Test cases and the ordered test corpus
//   - Shard keys and test filters
//   - Per-test results and per-worker result slots
//   - The aggregate result of a whole run
package types
