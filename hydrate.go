package clabject

import (
	"github.com/goliatone/go-clabject/internal/hydrate"
)

// HydrateOption configures how Hydrate decodes a node's properties.
type HydrateOption[T any] = hydrate.DecoderOption[T]

// Hydrate decodes the concrete properties of node (see Values) into T using
// JSON field mapping.
func Hydrate[T any](m *Model, node NodeID, opts ...HydrateOption[T]) (T, error) {
	var zero T
	m.mu.RLock()
	values, err := m.valuesLocked(node)
	name := m.graph.Name(node)
	m.mu.RUnlock()
	if err != nil {
		return zero, err
	}
	ctx := hydrate.Context{Node: string(node), Name: name}
	return hydrate.NewDecoder(opts...).Decode(ctx, values)
}

// WithStrictHydration rejects properties that have no matching field in T.
func WithStrictHydration[T any]() HydrateOption[T] {
	return hydrate.WithDisallowUnknownFields[T]()
}

// WithHydrationPreHook rewrites the property map before decoding.
func WithHydrationPreHook[T any](hook func(node NodeID, values map[string]any) (map[string]any, error)) HydrateOption[T] {
	return hydrate.WithPreHook[T](func(ctx hydrate.Context, values map[string]any) (map[string]any, error) {
		return hook(NodeID(ctx.Node), values)
	})
}

// WithHydrationHook adjusts or validates the decoded value.
func WithHydrationHook[T any](hook func(node NodeID, value *T) error) HydrateOption[T] {
	return hydrate.WithPostHook[T](func(ctx hydrate.Context, value *T) error {
		return hook(NodeID(ctx.Node), value)
	})
}
