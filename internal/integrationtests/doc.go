// Package integration_tests holds end-to-end tests that load a pipeline
// declaration from disk and run it through the whole application.
package integration_tests
