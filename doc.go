// Package clabject implements deep instantiation: an open-ended chain of
// levels where every node is both a type and an instance.
//
// A Model starts with a single root. CreateNode instantiates a new node from
// an existing one (its generator). Declare attaches a property or method to a
// node with a potency:
//
//   - potency 0 is visible on the declaring node only;
//   - potency 1 is visible on every instance of the declaring node;
//   - potency p >= 2 stays latent until p instantiation levels below the
//     declaring node, and is concrete from there on.
//
// Deep declarations are held on carrier records keyed by (owner, potency).
// A carrier is linked into the resolved ancestors of every node sitting
// exactly p levels below its owner; deeper nodes see it through their
// generator. When a deep declaration is added after descendants exist the
// model re-synthesizes the ancestor list of every node below the owner, and
// applies the result atomically.
//
// Lookup order for a node is its own object-scoped declarations, then the
// depth-first walk of its resolved ancestors. Resolved ancestors are built as
// explicit overrides, then due carriers, then the generator; the first match
// wins.
//
// Data flow:
//
//	Declare -> carrier -> propagate -> synthesize(descendants)
//	CreateNode -> synthesize(new node)
//	Resolve -> own scope -> Linearize(resolved ancestors)
package clabject
