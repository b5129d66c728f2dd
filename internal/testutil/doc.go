// Package testutil holds helpers shared by package tests: a thread-safe log
// buffer, a test logger in a context, and project-tree fixtures.
package testutil
