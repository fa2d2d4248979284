package clabject

import "time"

type pendingAncestors struct {
	node      NodeID
	ancestors []NodeID
}

// Propagate re-synthesizes every node below origin and returns how many were
// visited. Declare already does this for deep features; calling it again is
// idempotent.
func (m *Model) Propagate(origin NodeID) (int, error) {
	start := time.Now()
	m.mu.Lock()
	affected, err := m.propagateFrom(origin)
	m.mu.Unlock()
	m.log(LogEvent{Op: OpPropagate, Node: origin, Affected: affected, Duration: time.Since(start), Err: err})
	return affected, err
}

// propagateFrom plans new ancestor lists for the strict descendants of origin
// and commits them only if every one was computed and validated. origin's own
// list is left alone.
func (m *Model) propagateFrom(origin NodeID) (int, error) {
	if err := m.requireClient(origin); err != nil {
		return 0, wrapPropagationError(origin, origin, err)
	}
	plan, err := m.planSubtree(origin, nil)
	if err != nil {
		return 0, err
	}
	if err := m.commit(origin, plan); err != nil {
		return 0, err
	}
	return len(plan), nil
}

// planSubtree walks the instantiation subtree below parent depth-first and
// appends the synthesized list of each node to plan.
func (m *Model) planSubtree(parent NodeID, plan []pendingAncestors) ([]pendingAncestors, error) {
	origin := parent
	var walk func(NodeID) error
	walk = func(current NodeID) error {
		instances, err := m.graph.Instances(current)
		if err != nil {
			return wrapPropagationError(origin, current, err)
		}
		for _, instance := range instances {
			ancestors, err := m.synthesize(instance)
			if err != nil {
				return wrapPropagationError(origin, instance, err)
			}
			plan = append(plan, pendingAncestors{node: instance, ancestors: ancestors})
			if err := walk(instance); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(parent); err != nil {
		return nil, err
	}
	return plan, nil
}

// commit validates every planned list before writing any of them.
func (m *Model) commit(origin NodeID, plan []pendingAncestors) error {
	for _, pending := range plan {
		if err := m.graph.CheckAncestors(pending.node, pending.ancestors); err != nil {
			return wrapPropagationError(origin, pending.node, err)
		}
	}
	for _, pending := range plan {
		if err := m.graph.SetResolvedAncestors(pending.node, pending.ancestors); err != nil {
			return wrapPropagationError(origin, pending.node, err)
		}
	}
	return nil
}
