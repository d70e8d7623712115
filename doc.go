/*
Package canopy is a decision-tree orchestration engine. It routes a single
user query through a hierarchy of decision points ("branches"), at each point
selecting either a callable capability ("tool") or a nested branch, executing
the chosen action, accumulating its output into a shared per-run state store
("environment"), and streaming a sequence of typed events back to the caller
until a terminal tool or an unrecoverable error ends the run.

# Concept

Canopy treats your application as a tree of decisions. The engine owns the
traversal, the event ordering and the environment bookkeeping, while your
application ("Host") supplies the two things the engine deliberately does not
have: the tools that do the actual work, and the decision strategy that picks
an option at each branch. This Hexagonal Architecture lets canopy be embedded
behind any surface: CLI, HTTP/SSE server, or MCP agent infrastructure.

# Key Features

  - Streaming Contract: every run yields a strictly ordered event stream,
    closed by exactly one terminal event (Completed or a fatal Error).
  - Pluggable Decisions: the strategy is an injected function; the engine
    itself never decides. Without one, traversal is deterministic
    (first option), which makes trees trivially testable.
  - Hexagonal Architecture: the core is decoupled from adapters
    (step-log stores, loaders, transports).
  - Loud Assembly: duplicate branch ids and tool names fail at AddBranch and
    AddTool time instead of silently replacing earlier registrations.

# Usage

Assemble a tree, register tools, then run:

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/canopy"
		"github.com/aretw0/canopy/pkg/domain"
		"github.com/aretw0/canopy/pkg/tools"
	)

	func main() {
		tree := canopy.New("support")
		_ = tree.AddBranch("root", "Pick the action that answers the question.",
			canopy.AsRoot(), canopy.WithStatus("Thinking..."))

		echo, _ := tools.New(tools.Config{
			Name:     "echo",
			Terminal: true,
			Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
				return emit(ctx, domain.Response{Content: run.Prompt})
			},
		})
		_ = tree.AddTool(echo, "root")

		for ev := range tree.Run(context.Background(), "hello") {
			fmt.Printf("%s\n", ev.Kind())
		}
	}

The stream for this tree is Status, Response, Completed. See pkg/runner for
a host-side drain that turns a stream into a single Outcome, and pkg/adapters
for HTTP, MCP and markdown-definition surfaces.
*/
package canopy
