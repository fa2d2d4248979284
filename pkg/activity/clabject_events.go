package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the model.
const (
	VerbNodeCreated         = "clabject.node.created"
	VerbFeatureDeclared     = "clabject.feature.declared"
	VerbAncestorsPropagated = "clabject.ancestors.propagated"
	VerbAncestorsRefined    = "clabject.ancestors.refined"
)

// Object types attached to model events.
const (
	ObjectNode    = "clabject.node"
	ObjectFeature = "clabject.feature"
)

// NodeEventInput describes the common fields of model lifecycle events.
type NodeEventInput struct {
	ActorID    string
	TenantID   string
	Channel    string
	Node       string
	NodeName   string
	Generator  string
	Feature    string
	Kind       string
	Potency    int
	Carrier    string
	Ancestors  []string
	Affected   int
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildNodeCreatedEvent describes a new node instantiated from a generator.
func BuildNodeCreatedEvent(input NodeEventInput) Event {
	event := buildNodeEvent(VerbNodeCreated, ObjectNode, input)
	if input.Generator != "" {
		event.Metadata = ensureMetadata(event.Metadata)
		event.Metadata["generator"] = input.Generator
	}
	if len(input.Ancestors) > 0 {
		event.Metadata = ensureMetadata(event.Metadata)
		event.Metadata["ancestors"] = append([]string{}, input.Ancestors...)
	}
	return event
}

// BuildFeatureDeclaredEvent describes a declaration; the object id is
// "<node>/<feature>".
func BuildFeatureDeclaredEvent(input NodeEventInput) Event {
	event := buildNodeEvent(VerbFeatureDeclared, ObjectFeature, input)
	if input.Feature != "" && input.Node != "" {
		event.ObjectID = strings.TrimSpace(input.Node) + "/" + strings.TrimSpace(input.Feature)
	}
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["feature"] = input.Feature
	event.Metadata["kind"] = input.Kind
	event.Metadata["potency"] = input.Potency
	if input.Carrier != "" {
		event.Metadata["carrier"] = input.Carrier
	}
	return event
}

// BuildAncestorsPropagatedEvent describes a completed propagation pass.
func BuildAncestorsPropagatedEvent(input NodeEventInput) Event {
	event := buildNodeEvent(VerbAncestorsPropagated, ObjectNode, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["affected"] = input.Affected
	return event
}

// BuildAncestorsRefinedEvent describes an explicit ancestor change.
func BuildAncestorsRefinedEvent(input NodeEventInput) Event {
	event := buildNodeEvent(VerbAncestorsRefined, ObjectNode, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["ancestors"] = append([]string{}, input.Ancestors...)
	event.Metadata["affected"] = input.Affected
	return event
}

func buildNodeEvent(verb, objectType string, input NodeEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.NodeName != "" {
		metadata = ensureMetadata(metadata)
		metadata["node_name"] = input.NodeName
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   strings.TrimSpace(input.Node),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
