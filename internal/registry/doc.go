// Package registry provides the central "glue" for the adapter system.
//
// The Registry maps the adapter names used in pipeline declarations (e.g.
// the "minify" in `step "minify" {}`) to the compiled Go factories that
// decode a step's options and build its transform. Modules add their
// adapters during application startup; duplicate names are programmer
// errors and panic.
package registry
