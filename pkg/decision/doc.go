// Package decision provides reusable decision strategies for canopy trees.
//
// The engine never decides anything itself; at every branch it calls an
// injected domain.DecisionFunc. This package covers the host-side
// strategies that do not need a model: First (the deterministic default,
// exported for explicit wiring), Fixed (a queued script of choices for
// tests and demos) and Scripted (a Starlark script evaluated per decision
// point, with the run prompt and Environment in scope).
//
// An LLM-backed strategy is just another domain.DecisionFunc supplied by
// the host; nothing here depends on one.
package decision
