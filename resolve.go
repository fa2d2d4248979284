package clabject

import (
	"fmt"

	"github.com/goliatone/go-clabject/lineage"
)

// Resolve looks up name at node. The node's own object-scoped (potency 0)
// declarations are consulted first, then the resolved ancestors in
// linearized order. At an ancestor only potency 1 declarations are visible;
// at a carrier every declaration is. The first match wins, and within one
// node a later declaration of the same name shadows an earlier one.
func (m *Model) Resolve(node NodeID, name string) (Declaration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	decl, _, err := m.resolveLocked(node, name, false)
	return decl, err
}

// ResolveWithTrace resolves name and reports every node consulted, including
// nodes whose matching declarations were shadowed by an earlier layer.
func (m *Model) ResolveWithTrace(node NodeID, name string) (Declaration, Trace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveLocked(node, name, true)
}

func (m *Model) resolveLocked(node NodeID, name string, trace bool) (Declaration, Trace, error) {
	out := Trace{Node: node, Feature: name}
	if err := m.requireClient(node); err != nil {
		return Declaration{}, out, err
	}
	order, err := m.lookupOrder(node)
	if err != nil {
		return Declaration{}, out, err
	}

	var (
		winner Declaration
		found  bool
	)
	for _, layer := range order {
		visible, err := m.visible(node, layer)
		if err != nil {
			return Declaration{}, out, err
		}
		decl, ok := lastNamed(visible, name)
		if ok && !found {
			winner, found = decl, true
			if !trace {
				break
			}
		}
		if trace {
			entry := Provenance{
				Node:    layer,
				Name:    m.graph.Name(layer),
				Carrier: m.graph.IsCarrier(layer),
				Found:   ok,
			}
			if ok {
				entry.DeclarationID = decl.ID
				entry.Potency = decl.Potency
				entry.Value = decl.Payload
			}
			out.Layers = append(out.Layers, entry)
		}
	}
	if !found {
		return Declaration{}, out, fmt.Errorf("%w: %q at %s", ErrNotFound, name, node)
	}
	return winner, out, nil
}

// Members lists every concrete declaration at node, one per name, in lookup
// order.
func (m *Model) Members(node NodeID) ([]Declaration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.membersLocked(node)
}

func (m *Model) membersLocked(node NodeID) ([]Declaration, error) {
	if err := m.requireClient(node); err != nil {
		return nil, err
	}
	order, err := m.lookupOrder(node)
	if err != nil {
		return nil, err
	}
	var members []Declaration
	seen := map[string]struct{}{}
	for _, layer := range order {
		visible, err := m.visible(node, layer)
		if err != nil {
			return nil, err
		}
		var picked []Declaration
		for i := len(visible) - 1; i >= 0; i-- {
			decl := visible[i]
			if _, dup := seen[decl.Name]; dup {
				continue
			}
			seen[decl.Name] = struct{}{}
			picked = append(picked, decl)
		}
		for i := len(picked) - 1; i >= 0; i-- {
			members = append(members, picked[i])
		}
	}
	return members, nil
}

// Values returns the payloads of the concrete properties at node keyed by
// feature name.
func (m *Model) Values(node NodeID) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.valuesLocked(node)
}

func (m *Model) valuesLocked(node NodeID) (map[string]any, error) {
	members, err := m.membersLocked(node)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(members))
	for _, decl := range members {
		if decl.Kind == KindProperty {
			values[decl.Name] = decl.Payload
		}
	}
	return values, nil
}

// Linearize returns the full member-lookup order of node, excluding node
// itself: its resolved ancestors expanded depth-first, each node once.
func (m *Model) Linearize(node NodeID) ([]NodeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.requireClient(node); err != nil {
		return nil, err
	}
	return m.linearize(node)
}

func (m *Model) linearize(node NodeID) ([]NodeID, error) {
	return lineage.Linearize(node, m.graph.ResolvedAncestors)
}

func (m *Model) lookupOrder(node NodeID) ([]NodeID, error) {
	ancestors, err := m.linearize(node)
	if err != nil {
		return nil, err
	}
	return append([]NodeID{node}, ancestors...), nil
}

// visible filters the declarations held by layer down to the ones concrete
// when looked up from node.
func (m *Model) visible(node, layer NodeID) ([]Declaration, error) {
	decls, err := m.graph.Declarations(layer)
	if err != nil {
		return nil, err
	}
	if m.graph.IsCarrier(layer) {
		return decls, nil
	}
	want := 1
	if layer == node {
		want = 0
	}
	out := decls[:0]
	for _, decl := range decls {
		if decl.Potency == want {
			out = append(out, decl)
		}
	}
	return out, nil
}

func lastNamed(decls []Declaration, name string) (Declaration, bool) {
	for i := len(decls) - 1; i >= 0; i-- {
		if decls[i].Name == name {
			return decls[i], true
		}
	}
	return Declaration{}, false
}
