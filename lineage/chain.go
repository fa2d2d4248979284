// Package lineage builds ordered, duplicate-free ancestor sequences. It is
// generic over the identifier type so it can be reused by any layer that
// needs stable first-seen-wins ordering.
package lineage

// Chain is an ordered sequence from strongest (index 0) to weakest with every
// element appearing once.
type Chain[T comparable] struct {
	ordered []T
}

// New concatenates parts in order, drops duplicates keeping the first
// occurrence, and removes exclude wherever it appears.
func New[T comparable](exclude T, parts ...[]T) Chain[T] {
	size := 0
	for _, part := range parts {
		size += len(part)
	}
	ordered := make([]T, 0, size)
	seen := make(map[T]struct{}, size+1)
	seen[exclude] = struct{}{}
	for _, part := range parts {
		for _, item := range part {
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			ordered = append(ordered, item)
		}
	}
	return Chain[T]{ordered: ordered}
}

// Ordered returns a copy of the sequence.
func (c Chain[T]) Ordered() []T {
	out := make([]T, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of elements.
func (c Chain[T]) Len() int {
	return len(c.ordered)
}

// Contains reports whether v is in the chain.
func (c Chain[T]) Contains(v T) bool {
	for _, item := range c.ordered {
		if item == v {
			return true
		}
	}
	return false
}

// Strongest returns the first element (zero value if empty).
func (c Chain[T]) Strongest() T {
	var zero T
	if len(c.ordered) == 0 {
		return zero
	}
	return c.ordered[0]
}

// Weakest returns the final element (zero value if empty).
func (c Chain[T]) Weakest() T {
	var zero T
	if len(c.ordered) == 0 {
		return zero
	}
	return c.ordered[len(c.ordered)-1]
}

// Linearize walks the ancestor relation depth-first from start, visiting each
// node's parents in order and each node once. start itself is not included.
// The first error returned by parents aborts the walk.
func Linearize[T comparable](start T, parents func(T) ([]T, error)) ([]T, error) {
	var out []T
	seen := map[T]struct{}{start: {}}
	var visit func(T) error
	visit = func(node T) error {
		next, err := parents(node)
		if err != nil {
			return err
		}
		for _, parent := range next {
			if _, dup := seen[parent]; dup {
				continue
			}
			seen[parent] = struct{}{}
			out = append(out, parent)
			if err := visit(parent); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(start); err != nil {
		return nil, err
	}
	return out, nil
}
