package clabject

import "github.com/goliatone/go-clabject/lineage"

// synthesize computes the resolved ancestors of node without committing them.
//
// Precedence is the same whether or not node has explicit overrides:
// explicit ancestors, then due carriers, then the structural default (the
// generator). Duplicates keep their first position and node never lists
// itself.
func (m *Model) synthesize(node NodeID) ([]NodeID, error) {
	explicit, err := m.graph.Explicit(node)
	if err != nil {
		return nil, err
	}
	carriers, err := m.dueCarriers(node)
	if err != nil {
		return nil, err
	}
	var fallback []NodeID
	generator, ok, err := m.graph.Generator(node)
	if err != nil {
		return nil, err
	}
	if ok {
		fallback = []NodeID{generator}
	}
	return lineage.New(node, explicit, carriers, fallback).Ordered(), nil
}
