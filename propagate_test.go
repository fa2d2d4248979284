package clabject

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPriceScenario(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	mustDeclare(t, m, a, "price", KindProperty, 2, 9.99)
	b := mustCreate(t, m, "B", a)
	c := mustCreate(t, m, "C", b)

	if _, err := m.Resolve(b, "price"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected price to be latent at depth 1, got %v", err)
	}
	decl, err := m.Resolve(c, "price")
	if err != nil {
		t.Fatalf("resolve at depth 2: %v", err)
	}
	if decl.Payload != 9.99 || decl.Owner != a || decl.Potency != 2 {
		t.Fatalf("unexpected declaration %+v", decl)
	}
}

func TestCountScenario(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	mustDeclare(t, m, a, "count", KindProperty, 0, 3)
	b := mustCreate(t, m, "B", a)
	other := mustCreate(t, m, "B2", a)

	for _, instance := range []NodeID{b, other} {
		if _, err := m.Resolve(instance, "count"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected object-scoped count to be hidden at %s, got %v", instance, err)
		}
	}
	decl, err := m.Resolve(a, "count")
	if err != nil || decl.Payload != 3 {
		t.Fatalf("expected count on its owner, got %+v (%v)", decl, err)
	}
}

// For every potency p and every depth d below the owner, the feature resolves
// iff d >= p (p >= 1), and potency 0 only at the owner itself.
func TestPotencyVisibilityRule(t *testing.T) {
	const maxDepth = 5
	for potency := 0; potency <= 4; potency++ {
		t.Run(fmt.Sprintf("potency %d", potency), func(t *testing.T) {
			m := newTestModel()
			owner := mustCreate(t, m, "A", m.Root())
			mustDeclare(t, m, owner, "feature", KindProperty, potency, potency)

			lineage := []NodeID{owner}
			for depth := 1; depth <= maxDepth; depth++ {
				lineage = append(lineage, mustCreate(t, m, fmt.Sprintf("L%d", depth), lineage[depth-1]))
			}

			for depth, node := range lineage {
				_, err := m.Resolve(node, "feature")
				want := depth >= potency && (potency > 0 || depth == 0)
				if want && err != nil {
					t.Fatalf("depth %d: expected feature, got %v", depth, err)
				}
				if !want && !errors.Is(err, ErrNotFound) {
					t.Fatalf("depth %d: expected ErrNotFound, got %v", depth, err)
				}
			}
		})
	}
}

func TestDepthExactness(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	mustDeclare(t, m, a, "price", KindProperty, 2, 5)

	var level1, level2 []NodeID
	for i := 0; i < 3; i++ {
		b := mustCreate(t, m, fmt.Sprintf("B%d", i), a)
		level1 = append(level1, b)
		for j := 0; j < 2; j++ {
			level2 = append(level2, mustCreate(t, m, fmt.Sprintf("C%d%d", i, j), b))
		}
	}

	for _, node := range level1 {
		if _, err := m.Resolve(node, "price"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected price absent at depth 1 node %s, got %v", node, err)
		}
	}
	for _, node := range level2 {
		if _, err := m.Resolve(node, "price"); err != nil {
			t.Fatalf("expected price at depth 2 node %s, got %v", node, err)
		}
	}
}

func TestDynamicAdditionReachesExistingDescendants(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	b := mustCreate(t, m, "B", a)
	c := mustCreate(t, m, "C", b)
	d := mustCreate(t, m, "D", c)
	sibling := mustCreate(t, m, "C2", b)

	before := resolved(t, m, c)
	mustDeclare(t, m, a, "price", KindProperty, 2, 42)
	carrier := carrierFor(t, m, a, 2)

	if diff := cmp.Diff([]NodeID{carrier, b}, resolved(t, m, c)); diff != "" {
		t.Fatalf("C ancestors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NodeID{c}, resolved(t, m, d)); diff != "" {
		t.Fatalf("D should inherit the carrier through C (-want +got):\n%s", diff)
	}
	if cmp.Equal(before, resolved(t, m, c)) {
		t.Fatalf("expected C's ancestors to change")
	}
	for _, node := range []NodeID{c, d, sibling} {
		decl, err := m.Resolve(node, "price")
		if err != nil || decl.Payload != 42 {
			t.Fatalf("expected price at %s, got %+v (%v)", node, decl, err)
		}
	}
	if _, err := m.Resolve(b, "price"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected price to stay latent at B, got %v", err)
	}
}

func TestNewLevelExtension(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	b := mustCreate(t, m, "B", a)
	mustDeclare(t, m, a, "price", KindProperty, 2, 1)
	mustDeclare(t, m, a, "sku", KindProperty, 3, "x")
	mustDeclare(t, m, b, "isbn", KindProperty, 2, "978")

	c := mustCreate(t, m, "C", b)
	d := mustCreate(t, m, "D", c)

	cases := []struct {
		node    NodeID
		present []string
		absent  []string
	}{
		{node: c, present: []string{"price"}, absent: []string{"sku", "isbn"}},
		{node: d, present: []string{"price", "sku", "isbn"}},
	}
	for _, tc := range cases {
		for _, name := range tc.present {
			if _, err := m.Resolve(tc.node, name); err != nil {
				t.Fatalf("expected %s at %s, got %v", name, tc.node, err)
			}
		}
		for _, name := range tc.absent {
			if _, err := m.Resolve(tc.node, name); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected %s absent at %s, got %v", name, tc.node, err)
			}
		}
	}
}

func TestPropagateIsIdempotent(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	mustDeclare(t, m, a, "price", KindProperty, 2, 1)
	b := mustCreate(t, m, "B", a)
	mixin := mustCreate(t, m, "Mixin", m.Root())
	c := mustCreate(t, m, "C", b, mixin)
	d := mustCreate(t, m, "D", c)
	mustDeclare(t, m, b, "isbn", KindProperty, 2, "978")

	snapshot := func() map[NodeID][]NodeID {
		out := map[NodeID][]NodeID{}
		for _, node := range []NodeID{a, b, c, d} {
			out[node] = resolved(t, m, node)
		}
		return out
	}

	first, err := m.Propagate(a)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	once := snapshot()
	second, err := m.Propagate(a)
	if err != nil {
		t.Fatalf("propagate again: %v", err)
	}
	if first != 3 || second != 3 {
		t.Fatalf("expected 3 descendants visited, got %d and %d", first, second)
	}
	if diff := cmp.Diff(once, snapshot()); diff != "" {
		t.Fatalf("propagation not idempotent (-first +second):\n%s", diff)
	}
}

func TestDeclareDoesNotPropagateShallowFeatures(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	b := mustCreate(t, m, "B", a)
	before := resolved(t, m, b)

	mustDeclare(t, m, a, "count", KindProperty, 0, 1)
	mustDeclare(t, m, a, "name", KindProperty, 1, "a")

	m.mu.RLock()
	carriers := m.graph.Carriers(a)
	m.mu.RUnlock()
	if len(carriers) != 0 {
		t.Fatalf("expected no carriers for potency 0/1, got %v", carriers)
	}
	if diff := cmp.Diff(before, resolved(t, m, b)); diff != "" {
		t.Fatalf("shallow declarations must not touch ancestors (-want +got):\n%s", diff)
	}
	if _, err := m.Resolve(b, "name"); err != nil {
		t.Fatalf("expected potency 1 feature at direct instance, got %v", err)
	}
}

func TestCarrierReusedPerPotency(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	mustDeclare(t, m, a, "price", KindProperty, 2, 1)
	first := carrierFor(t, m, a, 2)
	mustDeclare(t, m, a, "weight", KindProperty, 2, 2)
	if again := carrierFor(t, m, a, 2); again != first {
		t.Fatalf("expected carrier reuse, got %s then %s", first, again)
	}
	mustDeclare(t, m, a, "sku", KindProperty, 3, "x")
	if other := carrierFor(t, m, a, 3); other == first {
		t.Fatalf("expected a separate carrier for potency 3")
	}
}

func TestPropagationFailureIsAtomic(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	b := mustCreate(t, m, "B", a)
	early := mustCreate(t, m, "C1", b)
	ghost := mustCreate(t, m, "Ghost", m.Root())
	broken := mustCreate(t, m, "C2", b, ghost)

	// Corrupt the graph: C2 keeps pointing at an ancestor that no longer exists.
	m.mu.Lock()
	if err := m.graph.Detach(ghost); err != nil {
		m.mu.Unlock()
		t.Fatalf("detach: %v", err)
	}
	m.mu.Unlock()

	beforeEarly := resolved(t, m, early)
	beforeBroken := resolved(t, m, broken)

	_, err := m.Declare(a, "price", KindProperty, 2, 1)
	if !errors.Is(err, ErrPropagationFailed) {
		t.Fatalf("expected ErrPropagationFailed, got %v", err)
	}
	var propErr *PropagationError
	if !errors.As(err, &propErr) {
		t.Fatalf("expected *PropagationError, got %T", err)
	}
	if propErr.Origin != a || propErr.Node != broken {
		t.Fatalf("unexpected failure site %+v", propErr)
	}
	if !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected the cause to be preserved, got %v", err)
	}

	if diff := cmp.Diff(beforeEarly, resolved(t, m, early)); diff != "" {
		t.Fatalf("sibling updated despite failure (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(beforeBroken, resolved(t, m, broken)); diff != "" {
		t.Fatalf("failing node updated (-want +got):\n%s", diff)
	}
	info, err := m.Node(carrierFor(t, m, a, 2))
	if err != nil {
		t.Fatalf("carrier: %v", err)
	}
	if len(info.Declarations) != 0 {
		t.Fatalf("expected the declaration to be withdrawn, got %+v", info.Declarations)
	}
}

func TestCommitValidatesBeforeWriting(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	b := mustCreate(t, m, "B", a)
	c := mustCreate(t, m, "C", a)

	plan := []pendingAncestors{
		{node: b, ancestors: []NodeID{m.Root()}},
		{node: c, ancestors: []NodeID{"missing"}},
	}
	m.mu.Lock()
	err := m.commit(a, plan)
	m.mu.Unlock()
	if !errors.Is(err, ErrPropagationFailed) {
		t.Fatalf("expected ErrPropagationFailed, got %v", err)
	}
	if diff := cmp.Diff([]NodeID{a}, resolved(t, m, b)); diff != "" {
		t.Fatalf("commit wrote before validating (-want +got):\n%s", diff)
	}
}

func TestPropagateRejectsCarriers(t *testing.T) {
	m := newTestModel()
	a := mustCreate(t, m, "A", m.Root())
	mustDeclare(t, m, a, "price", KindProperty, 2, 1)
	if _, err := m.Propagate(carrierFor(t, m, a, 2)); !errors.Is(err, ErrCarrierNode) {
		t.Fatalf("expected ErrCarrierNode, got %v", err)
	}
}
