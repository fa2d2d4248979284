package clabject

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Schema describes the concrete properties of node with the configured
// SchemaGenerator, or the descriptor generator when none is set. Features
// lists every concrete member, methods included, in lookup order.
func (m *Model) Schema(node NodeID) (SchemaDocument, error) {
	m.mu.RLock()
	members, err := m.membersLocked(node)
	m.mu.RUnlock()
	if err != nil {
		return SchemaDocument{}, err
	}

	values := make(map[string]any, len(members))
	features := make([]SchemaFeature, 0, len(members))
	for _, decl := range members {
		if decl.Kind == KindProperty {
			values[decl.Name] = decl.Payload
		}
		features = append(features, SchemaFeature{
			Name:    decl.Name,
			Kind:    decl.Kind.String(),
			Potency: decl.Potency,
			Owner:   decl.Owner,
		})
	}

	generator := m.cfg.schemaGenerator
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	doc, err := generator.Generate(values)
	if err != nil {
		return SchemaDocument{}, fmt.Errorf("clabject: schema for %s: %w", node, err)
	}
	doc.Node = node
	doc.Features = features
	return doc, nil
}

// FieldDescriptor describes a path and the inferred type.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(value any) (SchemaDocument, error) {
	descriptors := deriveFieldDescriptors(value, "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		return nil
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return []FieldDescriptor{{
				Path: prefix,
				Type: "map[string]any",
			}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			nextPrefix := joinPath(prefix, key)
			fields = append(fields, deriveFieldDescriptors(typed[key], nextPrefix)...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: "[]" + elementType,
		}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: typeName(typed),
		}}
	}
}

// typeName reports scalar payloads by their JSON kind and anything else by
// its Go type.
func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "number"
	case time.Time, *time.Time:
		return "time"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
