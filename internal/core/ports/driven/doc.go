// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ContentStore: Raw document bytes and modification times from the vault
//   - Parser: Frontmatter, tag, link and chunk extraction
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, semantic
//     search is disabled and hybrid search runs on the remaining signals.
//   - SnapshotStore: Persists index state across restarts. Without it, the
//     index is rebuilt from the ContentStore on startup.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or parser package
package driven
