/*
Package session implements editing sessions over a document store.

A Manager keeps one folio.Editor per open document, so undo and redo survive across
requests, and writes every change back to the store. Calls on the same document are
serialized with reference-counted mutexes; an optional DistributedLocker extends that
to several replicas sharing a store.
*/
package session
