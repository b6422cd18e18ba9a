// Package master implements the orchestrator of a system-test run.
// It allocates one result slot per worker, launches every worker once,
// joins them all and reduces the slots into a single verdict.
//
// Workers are launched either as child processes of the current binary
// (ProcessLauncher, the default) or as goroutines (InProcessLauncher).
package master
