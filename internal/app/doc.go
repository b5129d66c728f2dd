// Package app contains the core application logic. It wires the pipeline
// model, the task graph, the executor, the dev server and the watch
// scheduler into the two compositions (dev and build), decoupled from any
// specific entrypoint like a CLI.
package app
