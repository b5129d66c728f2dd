// Package asset defines the in-memory file stream that flows through a task
// pipeline. Every transform adapter consumes and produces a slice of Files.
package asset
