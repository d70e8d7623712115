/*
Package domain contains the core domain models for the Canopy engine.

It defines the fundamental entities of the orchestration tree, such as
Branches, Tools, the per-run Environment, and the closed set of events a run
streams back to its caller. This package is kept pure and free of external
I/O or persistence concerns, following Hexagonal Architecture principles.

# Key Entities

  - Branch: A named decision point grouping sibling tools and/or child branches.
  - Tool: The capability contract every executable leaf action implements.
  - Event: One member of the closed set of streamed progress/result/error/completion signals.
  - Environment: The per-run key-value store accumulating tool outputs.
  - Run: The per-run context (prompt, collections, history, Environment, metadata) threaded through a traversal.
*/
package domain
