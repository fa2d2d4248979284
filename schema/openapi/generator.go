// Package openapi generates OpenAPI documents describing the concrete
// properties of a clabject node.
package openapi

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	clabject "github.com/goliatone/go-clabject"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI-compatible schema generator.
func NewGenerator(opts ...GeneratorOption) clabject.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option returns a clabject.Option that wires the OpenAPI schema generator
// into a Model.
func Option(opts ...GeneratorOption) clabject.Option {
	return clabject.WithSchemaGenerator(NewGenerator(opts...))
}

// Generate publishes the schema of value under components.schemas.
func (g generator) Generate(value any) (clabject.SchemaDocument, error) {
	schema, err := buildSchema(reflect.ValueOf(value))
	if err != nil {
		return clabject.SchemaDocument{}, err
	}
	if g.config.required {
		markRequired(schema, value)
	}
	return clabject.SchemaDocument{
		Format:   clabject.SchemaFormatOpenAPI,
		Document: g.document(schema),
	}, nil
}

func (g generator) document(schema map[string]any) map[string]any {
	info := map[string]any{
		"title":   g.config.info.Title,
		"version": g.config.info.Version,
	}
	if g.config.info.Description != "" {
		info["description"] = g.config.info.Description
	}
	return map[string]any{
		"openapi": g.config.openAPIVersion,
		"info":    info,
		"paths":   map[string]any{},
		"components": map[string]any{
			"schemas": map[string]any{
				g.config.component: schema,
			},
		},
	}
}

func markRequired(schema map[string]any, value any) {
	values, ok := value.(map[string]any)
	if !ok || schema["type"] != "object" {
		return
	}
	required := make([]string, 0, len(values))
	for name, v := range values {
		if v != nil {
			required = append(required, name)
		}
	}
	if len(required) == 0 {
		return
	}
	sort.Strings(required)
	schema["required"] = required
}

var timeType = reflect.TypeOf(time.Time{})

func buildSchema(rv reflect.Value) (map[string]any, error) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return map[string]any{"type": "null"}, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return map[string]any{"type": "null"}, nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rv.Type() == timeType {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return objectSchema(structFields(rv))
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("openapi: map key type %s unsupported", rv.Type().Key())
		}
		fields := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			fields[iter.Key().String()] = iter.Value()
		}
		return objectSchema(fields)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "format": "byte"}, nil
		}
		items := map[string]any{}
		if rv.Len() > 0 {
			first, err := buildSchema(rv.Index(0))
			if err != nil {
				return nil, err
			}
			items = first
		}
		return map[string]any{"type": "array", "items": items}, nil
	default:
		return map[string]any{
			"type":   "string",
			"format": fmt.Sprintf("go:%s", rv.Type().String()),
		}, nil
	}
}

func objectSchema(fields map[string]reflect.Value) (map[string]any, error) {
	properties := make(map[string]any, len(fields))
	for name, field := range fields {
		child, err := buildSchema(field)
		if err != nil {
			return nil, fmt.Errorf("openapi: property %q: %w", name, err)
		}
		properties[name] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

// structFields keys exported fields by their json name, skipping "-".
func structFields(rv reflect.Value) map[string]reflect.Value {
	rt := rv.Type()
	fields := map[string]reflect.Value{}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields[name] = rv.Field(i)
	}
	return fields
}
