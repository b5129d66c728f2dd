// Package scheduler implements the Watch Scheduler of the development loop.
//
// File system events are matched against watch bindings, coalesced with a
// debounce window and handled in batches. A batch re-runs every task bound
// to a changed path exactly once, then asks the dev server to reload the
// browser (style hot-swap or full reload) or to show the build error.
// Batches never overlap: changes arriving while one is running are handled
// by a single follow-up batch.
package scheduler
