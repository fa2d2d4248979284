package clabject

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-clabject/pkg/activity"
)

// Declare attaches a feature to owner with the given potency.
//
// Potency 0 and 1 declarations are stored on owner and need no propagation.
// Potency p >= 2 declarations are stored on the carrier for (owner, p), which
// is created on first use, and every node below owner is re-synthesized so
// existing descendants at depth p pick the carrier up. If that pass fails the
// declaration is withdrawn and a *PropagationError is returned.
func (m *Model) Declare(owner NodeID, name string, kind Kind, potency int, payload any) (DeclarationID, error) {
	name = strings.TrimSpace(name)
	switch {
	case potency < 0:
		return "", fmt.Errorf("%w: %d", ErrInvalidPotency, potency)
	case name == "":
		return "", ErrNameRequired
	case kind != KindProperty && kind != KindMethod:
		return "", fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}

	start := time.Now()
	m.mu.Lock()
	decl, affected, err := m.declareLocked(owner, name, kind, potency, payload)
	ownerName := m.graph.Name(owner)
	m.mu.Unlock()

	m.log(LogEvent{
		Op:       OpDeclare,
		Node:     owner,
		Feature:  name,
		Potency:  potency,
		Affected: affected,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return "", err
	}

	m.emit(activity.BuildFeatureDeclaredEvent(activity.NodeEventInput{
		Node:     string(owner),
		NodeName: ownerName,
		Feature:  name,
		Kind:     kind.String(),
		Potency:  potency,
		Carrier:  string(decl.Carrier),
	}))
	if decl.Deep() {
		m.emit(activity.BuildAncestorsPropagatedEvent(activity.NodeEventInput{
			Node:     string(owner),
			NodeName: ownerName,
			Affected: affected,
		}))
	}
	return decl.ID, nil
}

func (m *Model) declareLocked(owner NodeID, name string, kind Kind, potency int, payload any) (Declaration, int, error) {
	if err := m.requireClient(owner); err != nil {
		return Declaration{}, 0, err
	}
	decl := Declaration{
		ID:      DeclarationID(m.newID()),
		Owner:   owner,
		Name:    name,
		Kind:    kind,
		Potency: potency,
		Payload: payload,
	}
	if !decl.Deep() {
		return decl, 0, m.graph.AddDeclaration(owner, decl)
	}

	carrier, _, err := m.graph.EnsureCarrier(owner, potency)
	if err != nil {
		return Declaration{}, 0, err
	}
	decl.Carrier = carrier
	if err := m.graph.AddDeclaration(carrier, decl); err != nil {
		return Declaration{}, 0, err
	}
	affected, err := m.propagateFrom(owner)
	if err != nil {
		_, _ = m.graph.RemoveDeclaration(carrier, decl.ID)
		return Declaration{}, 0, err
	}
	return decl, affected, nil
}
