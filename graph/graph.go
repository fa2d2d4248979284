// Package graph stores clabject nodes and the two edge families that connect
// them: generator edges (which node a node was instantiated from) and ancestor
// edges (the resolved lookup order). It holds data only; deciding what the
// ancestor lists should contain is the job of the caller.
//
// Graph is not safe for concurrent use. Callers serialise access.
package graph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies a node or carrier.
type ID string

var (
	// ErrUnknownNode indicates an operation referenced an id not in the graph.
	ErrUnknownNode = errors.New("graph: unknown node")
	// ErrCycleDetected indicates the generator relation would stop being a tree.
	ErrCycleDetected = errors.New("graph: generator cycle detected")
	// ErrCarrierNode indicates a carrier was used where a client node is required.
	ErrCarrierNode = errors.New("graph: carrier nodes cannot be used here")
	// ErrHasInstances indicates a node with instances cannot be detached.
	ErrHasInstances = errors.New("graph: node has instances")
)

type carrierKey struct {
	owner   ID
	potency int
}

type record struct {
	id        ID
	name      string
	generator ID
	explicit  []ID
	resolved  []ID
	decls     []Declaration
	instances []ID
	carrier   *carrierKey
}

// Graph owns every node and carrier record.
type Graph struct {
	root     ID
	nodes    map[ID]*record
	carriers map[carrierKey]ID
	newID    func() string
}

// New creates a graph holding only the root node. A nil idgen falls back to
// random UUIDs.
func New(rootName string, idgen func() string) *Graph {
	if idgen == nil {
		idgen = uuid.NewString
	}
	g := &Graph{
		nodes:    make(map[ID]*record),
		carriers: make(map[carrierKey]ID),
		newID:    idgen,
	}
	g.root = g.nextID()
	g.nodes[g.root] = &record{id: g.root, name: rootName}
	return g
}

// Root returns the sentinel root every generator chain terminates at.
func (g *Graph) Root() ID {
	return g.root
}

// Len returns the number of records, carriers included.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Has reports whether id is present.
func (g *Graph) Has(id ID) bool {
	_, ok := g.nodes[id]
	return ok
}

// IsCarrier reports whether id names a carrier record.
func (g *Graph) IsCarrier(id ID) bool {
	rec, ok := g.nodes[id]
	return ok && rec.carrier != nil
}

// Name returns the label of id, empty when unknown.
func (g *Graph) Name(id ID) string {
	if rec, ok := g.nodes[id]; ok {
		return rec.name
	}
	return ""
}

// AddNode instantiates a new node from generator with the supplied explicit
// ancestor overrides. Resolved ancestors start empty.
func (g *Graph) AddNode(name string, generator ID, explicit []ID) (ID, error) {
	if _, err := g.clientRecord(generator); err != nil {
		return "", fmt.Errorf("generator: %w", err)
	}
	if err := g.checkClients(explicit); err != nil {
		return "", fmt.Errorf("explicit ancestors: %w", err)
	}
	if _, err := g.GeneratorChain(generator); err != nil {
		return "", err
	}

	id := g.nextID()
	if _, clash := g.nodes[id]; clash || id == generator {
		return "", fmt.Errorf("%w: id %s already in use", ErrCycleDetected, id)
	}
	g.nodes[id] = &record{
		id:        id,
		name:      name,
		generator: generator,
		explicit:  append([]ID(nil), explicit...),
	}
	parent := g.nodes[generator]
	parent.instances = append(parent.instances, id)
	return id, nil
}

// Detach removes a node that has no instances. It exists so callers can roll
// back a creation that failed before the node was exposed.
func (g *Graph) Detach(id ID) error {
	rec, err := g.record(id)
	if err != nil {
		return err
	}
	if id == g.root {
		return fmt.Errorf("graph: root cannot be detached")
	}
	if rec.carrier != nil {
		return fmt.Errorf("%w: %s", ErrCarrierNode, id)
	}
	if len(rec.instances) > 0 {
		return fmt.Errorf("%w: %s", ErrHasInstances, id)
	}
	if parent, ok := g.nodes[rec.generator]; ok {
		parent.instances = removeID(parent.instances, id)
	}
	delete(g.nodes, id)
	return nil
}

// Generator returns the node id was instantiated from. ok is false for the
// root and for carriers.
func (g *Graph) Generator(id ID) (ID, bool, error) {
	rec, err := g.record(id)
	if err != nil {
		return "", false, err
	}
	if rec.generator == "" {
		return "", false, nil
	}
	return rec.generator, true, nil
}

// GeneratorChain returns the instantiation lineage of id, nearest generator
// first and root last. The root yields an empty chain.
func (g *Graph) GeneratorChain(id ID) ([]ID, error) {
	rec, err := g.record(id)
	if err != nil {
		return nil, err
	}
	var chain []ID
	seen := map[ID]struct{}{id: {}}
	for rec.generator != "" {
		next := rec.generator
		if _, loop := seen[next]; loop {
			return nil, fmt.Errorf("%w: %s revisited from %s", ErrCycleDetected, next, id)
		}
		seen[next] = struct{}{}
		chain = append(chain, next)
		if rec, err = g.record(next); err != nil {
			return nil, err
		}
	}
	return chain, nil
}

// Instances returns the direct instances of id in creation order.
func (g *Graph) Instances(id ID) ([]ID, error) {
	rec, err := g.record(id)
	if err != nil {
		return nil, err
	}
	return append([]ID(nil), rec.instances...), nil
}

// Explicit returns the owner-chosen ancestor overrides of id.
func (g *Graph) Explicit(id ID) ([]ID, error) {
	rec, err := g.record(id)
	if err != nil {
		return nil, err
	}
	return append([]ID(nil), rec.explicit...), nil
}

// SetExplicit replaces the explicit ancestor overrides of id.
func (g *Graph) SetExplicit(id ID, explicit []ID) error {
	rec, err := g.clientRecord(id)
	if err != nil {
		return err
	}
	if err := g.checkClients(explicit); err != nil {
		return fmt.Errorf("explicit ancestors: %w", err)
	}
	rec.explicit = append([]ID(nil), explicit...)
	return nil
}

// ResolvedAncestors returns the committed lookup order of id.
func (g *Graph) ResolvedAncestors(id ID) ([]ID, error) {
	rec, err := g.record(id)
	if err != nil {
		return nil, err
	}
	return append([]ID(nil), rec.resolved...), nil
}

// CheckAncestors validates list as a resolved-ancestor list for id without
// committing it.
func (g *Graph) CheckAncestors(id ID, list []ID) error {
	if _, err := g.record(id); err != nil {
		return err
	}
	for _, ancestor := range list {
		if ancestor == id {
			return fmt.Errorf("%w: %s lists itself as ancestor", ErrCycleDetected, id)
		}
		if !g.Has(ancestor) {
			return fmt.Errorf("%w: ancestor %s of %s", ErrUnknownNode, ancestor, id)
		}
	}
	return nil
}

// SetResolvedAncestors commits list as the lookup order of id.
func (g *Graph) SetResolvedAncestors(id ID, list []ID) error {
	if err := g.CheckAncestors(id, list); err != nil {
		return err
	}
	g.nodes[id].resolved = append([]ID(nil), list...)
	return nil
}

// Declarations returns the declarations attached to id in declaration order.
func (g *Graph) Declarations(id ID) ([]Declaration, error) {
	rec, err := g.record(id)
	if err != nil {
		return nil, err
	}
	return append([]Declaration(nil), rec.decls...), nil
}

// AddDeclaration attaches decl to id.
func (g *Graph) AddDeclaration(id ID, decl Declaration) error {
	rec, err := g.record(id)
	if err != nil {
		return err
	}
	rec.decls = append(rec.decls, decl)
	return nil
}

// RemoveDeclaration detaches the declaration with the given id from node.
// It reports whether anything was removed.
func (g *Graph) RemoveDeclaration(id ID, declID DeclarationID) (bool, error) {
	rec, err := g.record(id)
	if err != nil {
		return false, err
	}
	for i, decl := range rec.decls {
		if decl.ID == declID {
			rec.decls = append(rec.decls[:i:i], rec.decls[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Carrier looks up the carrier holding owner's declarations at potency.
func (g *Graph) Carrier(owner ID, potency int) (ID, bool) {
	id, ok := g.carriers[carrierKey{owner: owner, potency: potency}]
	return id, ok
}

// EnsureCarrier returns the carrier for (owner, potency), creating it on first
// use. created reports whether a new record was made.
func (g *Graph) EnsureCarrier(owner ID, potency int) (id ID, created bool, err error) {
	if _, err := g.clientRecord(owner); err != nil {
		return "", false, err
	}
	key := carrierKey{owner: owner, potency: potency}
	if existing, ok := g.carriers[key]; ok {
		return existing, false, nil
	}
	id = g.nextID()
	if _, clash := g.nodes[id]; clash {
		return "", false, fmt.Errorf("%w: id %s already in use", ErrCycleDetected, id)
	}
	g.nodes[id] = &record{
		id:      id,
		name:    fmt.Sprintf("%s^%d", g.nodes[owner].label(), potency),
		carrier: &key,
	}
	g.carriers[key] = id
	return id, true, nil
}

// CarrierOf reports the (owner, potency) pair a carrier was created for.
func (g *Graph) CarrierOf(id ID) (owner ID, potency int, ok bool) {
	rec, exists := g.nodes[id]
	if !exists || rec.carrier == nil {
		return "", 0, false
	}
	return rec.carrier.owner, rec.carrier.potency, true
}

// Carriers lists the carriers owned by owner keyed by potency.
func (g *Graph) Carriers(owner ID) map[int]ID {
	out := map[int]ID{}
	for key, id := range g.carriers {
		if key.owner == owner {
			out[key.potency] = id
		}
	}
	return out
}

func (g *Graph) record(id ID) (*record, error) {
	rec, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	return rec, nil
}

func (g *Graph) clientRecord(id ID) (*record, error) {
	rec, err := g.record(id)
	if err != nil {
		return nil, err
	}
	if rec.carrier != nil {
		return nil, fmt.Errorf("%w: %s", ErrCarrierNode, id)
	}
	return rec, nil
}

func (g *Graph) checkClients(ids []ID) error {
	for _, id := range ids {
		if _, err := g.clientRecord(id); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) nextID() ID {
	return ID(g.newID())
}

func (r *record) label() string {
	if r.name != "" {
		return r.name
	}
	return string(r.id)
}

func removeID(ids []ID, target ID) []ID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
