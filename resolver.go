package clabject

// dueCarriers returns the carriers that must be spliced into node's resolved
// ancestors: for the ancestor at relative depth d above node, the carrier
// (ancestor, d) if one exists. Nodes deeper than d reach the same carrier
// through their generator, so only the exact depth is linked here. The result
// is ordered nearest owner first.
func (m *Model) dueCarriers(node NodeID) ([]NodeID, error) {
	chain, err := m.graph.GeneratorChain(node)
	if err != nil {
		return nil, err
	}
	var carriers []NodeID
	for i, ancestor := range chain {
		if carrier, ok := m.graph.Carrier(ancestor, i+1); ok {
			carriers = append(carriers, carrier)
		}
	}
	return carriers, nil
}
