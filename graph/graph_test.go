package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func TestNewGraphHasRootOnly(t *testing.T) {
	g := New("root", sequentialIDs())
	if g.Root() != "n1" {
		t.Fatalf("expected root n1, got %q", g.Root())
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", g.Len())
	}
	chain, err := g.GeneratorChain(g.Root())
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if len(chain) != 0 {
		t.Fatalf("expected empty chain for root, got %v", chain)
	}
	if _, ok, _ := g.Generator(g.Root()); ok {
		t.Fatalf("root must not have a generator")
	}
}

func TestGeneratorChainNearestFirst(t *testing.T) {
	g := New("root", sequentialIDs())
	a, err := g.AddNode("A", g.Root(), nil)
	if err != nil {
		t.Fatalf("add A: %v", err)
	}
	b, _ := g.AddNode("B", a, nil)
	c, _ := g.AddNode("C", b, nil)

	chain, err := g.GeneratorChain(c)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if diff := cmp.Diff([]ID{b, a, g.Root()}, chain); diff != "" {
		t.Fatalf("chain mismatch (-want +got):\n%s", diff)
	}

	instances, _ := g.Instances(a)
	if diff := cmp.Diff([]ID{b}, instances); diff != "" {
		t.Fatalf("instances mismatch (-want +got):\n%s", diff)
	}
}

func TestAddNodeRejectsUnknownAndCarriers(t *testing.T) {
	g := New("root", sequentialIDs())
	if _, err := g.AddNode("x", "missing", nil); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	a, _ := g.AddNode("A", g.Root(), nil)
	if _, err := g.AddNode("x", a, []ID{"missing"}); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode for explicit ancestor, got %v", err)
	}

	carrier, created, err := g.EnsureCarrier(a, 2)
	if err != nil || !created {
		t.Fatalf("ensure carrier: created=%v err=%v", created, err)
	}
	if _, err := g.AddNode("x", carrier, nil); !errors.Is(err, ErrCarrierNode) {
		t.Fatalf("expected ErrCarrierNode for carrier generator, got %v", err)
	}
	if _, err := g.AddNode("x", a, []ID{carrier}); !errors.Is(err, ErrCarrierNode) {
		t.Fatalf("expected ErrCarrierNode for carrier ancestor, got %v", err)
	}
}

func TestAddNodeDetectsReusedIdentity(t *testing.T) {
	g := New("root", func() string { return "same" })
	if _, err := g.AddNode("A", g.Root(), nil); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestGeneratorChainDetectsCorruptedCycle(t *testing.T) {
	g := New("root", sequentialIDs())
	a, _ := g.AddNode("A", g.Root(), nil)
	b, _ := g.AddNode("B", a, nil)
	g.nodes[a].generator = b

	if _, err := g.GeneratorChain(b); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	if _, err := g.AddNode("C", b, nil); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected AddNode to refuse a cyclic generator, got %v", err)
	}
}

func TestEnsureCarrierReusesPerPotency(t *testing.T) {
	g := New("root", sequentialIDs())
	a, _ := g.AddNode("A", g.Root(), nil)

	first, created, _ := g.EnsureCarrier(a, 2)
	again, createdAgain, _ := g.EnsureCarrier(a, 2)
	other, _, _ := g.EnsureCarrier(a, 3)

	if !created || createdAgain {
		t.Fatalf("expected creation once, got created=%v again=%v", created, createdAgain)
	}
	if first != again {
		t.Fatalf("expected carrier reuse, got %s and %s", first, again)
	}
	if first == other {
		t.Fatalf("expected a distinct carrier per potency")
	}
	if owner, potency, ok := g.CarrierOf(other); !ok || owner != a || potency != 3 {
		t.Fatalf("unexpected carrier key: %s %d %v", owner, potency, ok)
	}
	if g.Name(first) != "A^2" {
		t.Fatalf("expected carrier label A^2, got %q", g.Name(first))
	}
	if got := g.Carriers(a); len(got) != 2 || got[2] != first || got[3] != other {
		t.Fatalf("unexpected carriers: %v", got)
	}
}

func TestSetResolvedAncestorsValidates(t *testing.T) {
	g := New("root", sequentialIDs())
	a, _ := g.AddNode("A", g.Root(), nil)

	if err := g.SetResolvedAncestors(a, []ID{a}); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected self reference to be refused, got %v", err)
	}
	if err := g.SetResolvedAncestors(a, []ID{"missing"}); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if err := g.SetResolvedAncestors(a, []ID{g.Root()}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := g.ResolvedAncestors(a)
	got[0] = "mutated"
	again, _ := g.ResolvedAncestors(a)
	if again[0] != g.Root() {
		t.Fatalf("expected defensive copy, got %v", again)
	}
}

func TestDeclarationsAddAndRemove(t *testing.T) {
	g := New("root", sequentialIDs())
	a, _ := g.AddNode("A", g.Root(), nil)
	decl := Declaration{ID: "d1", Owner: a, Name: "price", Kind: KindProperty, Potency: 1}
	if err := g.AddDeclaration(a, decl); err != nil {
		t.Fatalf("add: %v", err)
	}
	decls, _ := g.Declarations(a)
	if len(decls) != 1 || decls[0].Name != "price" {
		t.Fatalf("unexpected declarations: %+v", decls)
	}
	removed, err := g.RemoveDeclaration(a, "d1")
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	if decls, _ := g.Declarations(a); len(decls) != 0 {
		t.Fatalf("expected no declarations after removal, got %+v", decls)
	}
}

func TestDetachLeafOnly(t *testing.T) {
	g := New("root", sequentialIDs())
	a, _ := g.AddNode("A", g.Root(), nil)
	b, _ := g.AddNode("B", a, nil)

	if err := g.Detach(a); !errors.Is(err, ErrHasInstances) {
		t.Fatalf("expected ErrHasInstances, got %v", err)
	}
	if err := g.Detach(b); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if g.Has(b) {
		t.Fatalf("expected B removed")
	}
	if instances, _ := g.Instances(a); len(instances) != 0 {
		t.Fatalf("expected reverse index cleaned, got %v", instances)
	}
	if err := g.Detach(g.Root()); err == nil {
		t.Fatalf("expected root detach to fail")
	}
}

func TestDeclarationScope(t *testing.T) {
	cases := map[int]Scope{0: ScopeObject, 1: ScopeInstance, 2: ScopeDeep, 7: ScopeDeep}
	for potency, want := range cases {
		if got := (Declaration{Potency: potency}).Scope(); got != want {
			t.Fatalf("potency %d: expected %s, got %s", potency, want, got)
		}
	}
	if ParseKind(" Method ") != KindMethod || ParseKind("property") != KindProperty || ParseKind("x") != KindUnknown {
		t.Fatalf("unexpected ParseKind results")
	}
}

func TestDeclarationKindEncodesByName(t *testing.T) {
	payload, err := json.Marshal(Declaration{ID: "d1", Owner: "a", Name: "total", Kind: KindMethod, Potency: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"kind":"method"`) {
		t.Fatalf("expected kind by name, got %s", payload)
	}
	var decoded Declaration
	if err := json.Unmarshal([]byte(`{"id":"d2","kind":"prop"}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Kind != KindProperty {
		t.Fatalf("expected alias to decode as property, got %s", decoded.Kind)
	}
}
