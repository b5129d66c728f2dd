// Package dag provides a small, concurrency-safe directed acyclic graph of
// string-identified nodes. The application uses it to order tasks by their
// `depends_on` declarations and to reject dependency cycles at startup.
package dag
