// Package devserver implements the development HTTP server: it serves the
// project's output directory, injects the live-reload client into HTML
// pages and pushes reload and build-error notifications to connected
// browsers over socket.io.
package devserver
