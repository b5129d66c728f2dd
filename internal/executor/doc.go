// Package executor runs a composition of tasks as a DAG on a bounded worker
// pool. A task starts once every task it depends on has succeeded. A failed
// task never aborts its siblings; only the tasks downstream of it are
// skipped.
package executor
