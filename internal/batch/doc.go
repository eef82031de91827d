// Package batch turns user input (CLI flags, batch files, show
// enumeration) into download tasks and runs them through a bounded
// worker pool.
package batch
