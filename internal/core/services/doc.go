// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The IndexService owns the shared mutable state (document records, tag
// index, link index) behind a single read-write lock so that a document's
// tags and links always move together from a reader's point of view. The
// TagIndex and LinkIndex types are plain data structures with no locking
// of their own; all access routes through the owning services.
//
// Services are pure Go with no CGO dependencies.
package services
