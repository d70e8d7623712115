// Package middleware provides composable wrappers around a RunStore,
// adding cross-cutting behavior such as encryption at rest and PII
// masking without touching the underlying adapter.
package middleware

import "github.com/aretw0/canopy/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

// Chain applies middlewares right-to-left, so the first middleware in
// the list is the outermost wrapper.
func Chain(store ports.RunStore, middlewares ...Middleware) ports.RunStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
