package clabject

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-clabject/graph"
	"github.com/goliatone/go-clabject/pkg/activity"
	"github.com/google/uuid"
)

// Model owns a node graph rooted at a single sentinel root. All mutation goes
// through CreateNode, Declare and Refine, each of which runs as one critical
// section including any propagation it triggers. Model is safe for
// concurrent use.
type Model struct {
	mu      sync.RWMutex
	graph   *graph.Graph
	cfg     modelConfig
	emitter *activity.Emitter
	newID   func() string

	evalMu     sync.Mutex
	evaluators map[string]Evaluator
}

// NewModel constructs a model holding only its root.
func NewModel(opts ...Option) *Model {
	cfg := applyOptions(opts)
	idgen := cfg.idgen
	if idgen == nil {
		idgen = uuid.NewString
	}
	m := &Model{
		cfg:     cfg,
		graph:   graph.New(cfg.rootName, idgen),
		emitter: activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
		newID:   idgen,
	}
	return m
}

// Root returns the sentinel root id.
func (m *Model) Root() NodeID {
	return m.graph.Root()
}

// CreateNode instantiates a new node from generator. explicit lists ancestor
// overrides that take precedence over everything the node would otherwise
// inherit. The returned node already sees every deep feature due at its depth.
func (m *Model) CreateNode(generator NodeID, explicit ...NodeID) (NodeID, error) {
	return m.CreateNamedNode("", generator, explicit...)
}

// CreateNamedNode is CreateNode with a human-readable label.
func (m *Model) CreateNamedNode(name string, generator NodeID, explicit ...NodeID) (NodeID, error) {
	start := time.Now()
	m.mu.Lock()
	id, resolved, err := m.createLocked(name, generator, explicit)
	m.mu.Unlock()

	m.log(LogEvent{Op: OpCreate, Node: id, Duration: time.Since(start), Err: err})
	if err != nil {
		return "", err
	}
	m.emit(activity.BuildNodeCreatedEvent(activity.NodeEventInput{
		Node:      string(id),
		NodeName:  name,
		Generator: string(generator),
		Ancestors: idStrings(resolved),
	}))
	return id, nil
}

func (m *Model) createLocked(name string, generator NodeID, explicit []NodeID) (NodeID, []NodeID, error) {
	id, err := m.graph.AddNode(name, generator, explicit)
	if err != nil {
		return "", nil, fmt.Errorf("clabject: create node: %w", err)
	}
	resolved, err := m.synthesize(id)
	if err == nil {
		err = m.graph.SetResolvedAncestors(id, resolved)
	}
	if err != nil {
		_ = m.graph.Detach(id)
		return "", nil, fmt.Errorf("clabject: create node: %w", err)
	}
	return id, resolved, nil
}

// GeneratorChain returns the instantiation lineage of node, nearest generator
// first and root last.
func (m *Model) GeneratorChain(node NodeID) ([]NodeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.requireClient(node); err != nil {
		return nil, err
	}
	return m.graph.GeneratorChain(node)
}

// Depth returns the number of instantiation levels between node and the root.
func (m *Model) Depth(node NodeID) (int, error) {
	chain, err := m.GeneratorChain(node)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

// Instances returns the direct instances of node in creation order.
func (m *Model) Instances(node NodeID) ([]NodeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.requireClient(node); err != nil {
		return nil, err
	}
	return m.graph.Instances(node)
}

// Node returns a snapshot of node. Carriers can be inspected too.
func (m *Model) Node(node NodeID) (NodeInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.graph.Has(node) {
		return NodeInfo{}, fmt.Errorf("%w: %q", ErrUnknownNode, node)
	}
	info := NodeInfo{
		ID:      node,
		Name:    m.graph.Name(node),
		Carrier: m.graph.IsCarrier(node),
	}
	if info.Carrier {
		info.Owner, info.Potency, _ = m.graph.CarrierOf(node)
	}
	var err error
	if info.Generator, _, err = m.graph.Generator(node); err != nil {
		return NodeInfo{}, err
	}
	if info.Explicit, err = m.graph.Explicit(node); err != nil {
		return NodeInfo{}, err
	}
	if info.Resolved, err = m.graph.ResolvedAncestors(node); err != nil {
		return NodeInfo{}, err
	}
	if info.Instances, err = m.graph.Instances(node); err != nil {
		return NodeInfo{}, err
	}
	if info.Declarations, err = m.graph.Declarations(node); err != nil {
		return NodeInfo{}, err
	}
	chain, err := m.graph.GeneratorChain(node)
	if err != nil {
		return NodeInfo{}, err
	}
	info.Depth = len(chain)
	return info, nil
}

// Refine replaces the explicit ancestor overrides of node and re-synthesizes
// its resolved ancestors. Instances of node see the change through their
// generator. explicit must not contain node, carriers, or any node that
// already inherits from node.
func (m *Model) Refine(node NodeID, explicit ...NodeID) error {
	start := time.Now()
	m.mu.Lock()
	resolved, err := m.refineLocked(node, explicit)
	name := m.graph.Name(node)
	m.mu.Unlock()

	m.log(LogEvent{Op: OpRefine, Node: node, Affected: 1, Duration: time.Since(start), Err: err})
	if err != nil {
		return err
	}
	m.emit(activity.BuildAncestorsRefinedEvent(activity.NodeEventInput{
		Node:      string(node),
		NodeName:  name,
		Ancestors: idStrings(resolved),
		Affected:  1,
	}))
	return nil
}

func (m *Model) refineLocked(node NodeID, explicit []NodeID) ([]NodeID, error) {
	if err := m.requireClient(node); err != nil {
		return nil, err
	}
	for _, candidate := range explicit {
		if candidate == node {
			return nil, fmt.Errorf("%w: %s cannot refine itself", ErrCycleDetected, node)
		}
		if err := m.requireClient(candidate); err != nil {
			return nil, err
		}
		closure, err := m.linearize(candidate)
		if err != nil {
			return nil, err
		}
		if slices.Contains(closure, node) {
			return nil, fmt.Errorf("%w: %s already inherits from %s", ErrCycleDetected, candidate, node)
		}
	}

	previous, err := m.graph.Explicit(node)
	if err != nil {
		return nil, err
	}
	if err := m.graph.SetExplicit(node, explicit); err != nil {
		return nil, err
	}
	resolved, err := m.synthesize(node)
	if err == nil {
		err = m.graph.SetResolvedAncestors(node, resolved)
	}
	if err != nil {
		_ = m.graph.SetExplicit(node, previous)
		return nil, fmt.Errorf("clabject: refine %s: %w", node, err)
	}
	return resolved, nil
}

func (m *Model) requireClient(node NodeID) error {
	if !m.graph.Has(node) {
		return fmt.Errorf("%w: %q", ErrUnknownNode, node)
	}
	if m.graph.IsCarrier(node) {
		return fmt.Errorf("%w: %s", ErrCarrierNode, node)
	}
	return nil
}

func (m *Model) log(event LogEvent) {
	m.cfg.logger.LogEvent(event)
}

func (m *Model) emit(event activity.Event) {
	if !m.emitter.Enabled() {
		return
	}
	if err := m.emitter.Emit(context.Background(), event); err != nil {
		m.log(LogEvent{Op: OpActivity, Node: NodeID(event.ObjectID), Feature: event.Verb, Err: err})
	}
}

func idStrings(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
