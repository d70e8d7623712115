/*
Package runlog observes and manages persisted run step logs.

The engine itself never persists anything; step logs are a collaborator
watching the event stream from the outside. This package provides the two
pieces that sit between a run and a ports.RunStore:

  - Recorder: a transparent stream tap. It forwards a run's events
    unchanged while appending each one to a store, so attaching persistence
    costs the run nothing but the store latency and can never alter its
    outcome.
  - Manager: per-run access serialization for hosts where several
    consumers touch the same recorded run, with optional distributed
    locking for multi-replica deployments.

Store implementations live in pkg/adapters (memory, redis, sqlite) and are
verified against the shared contract suite in pkg/ports.
*/
package runlog
