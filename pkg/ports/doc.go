/*
Package ports defines the driven ports (interfaces) of the Folio editing core.

These interfaces decouple the core from external implementations, so the same editor
can persist documents in memory, on disk or in Redis, and can hand expressions to any
evaluator the host provides.

# Key Interfaces

  - CommandDispatcher: applies a command to a document (the engine, or an editor).
  - DocumentStore: persists and loads documents by ID.
  - DistributedLocker: provides distributed locking for concurrent document access.
  - Evaluator: evaluates conditional and loop expressions for previews.
*/
package ports
