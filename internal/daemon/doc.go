// Package daemon implements the threadrunner inference daemon: a Unix
// socket server that accepts framed JSON prompt requests, streams token
// frames back, and manages the lifecycle of a single lazily loaded
// model backend.
//
// Files:
// - daemon.go: Daemon type, socket accept loop, graceful shutdown
// - state.go: shared mutable state (backend slot, last activity) behind one mutex
// - handler.go: per-connection request/stream handling
// - idle.go: periodic idle eviction task
// - errors.go: error classification into wire error kinds
// - events.go: lifecycle event publishing (EventPublisher, MemoryPublisher)
// - metrics.go: Prometheus metrics
// - debug.go: optional HTTP debug server (health, status, models, metrics)
package daemon
