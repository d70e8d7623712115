/*
Package ports defines the driven ports (interfaces) for the Canopy engine.

These interfaces decouple the core from external implementations, allowing
step logs to land in various storage backends and transport adapters to
drive the engine without importing the facade.

# Key Interfaces

  - Engine: The run/inspect surface consumed by transport adapters (HTTP, MCP).
  - RunStore: Persists ordered step logs of runs (memory, Redis, SQLite backends).
  - DistributedLocker: Coordinates per-run access across multiple instances.
*/
package ports
