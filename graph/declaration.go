package graph

import "strings"

// Kind classifies a declared feature.
type Kind int

const (
	// KindUnknown guards against zero-value declarations.
	KindUnknown Kind = iota
	// KindProperty is a data feature whose payload is its value.
	KindProperty
	// KindMethod is a behavioural feature whose payload is an expression.
	KindMethod
)

func (k Kind) String() string {
	switch k {
	case KindProperty:
		return "property"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts any spelling ParseKind understands.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// ParseKind converts a string representation into the corresponding Kind.
// Returns KindUnknown for unrecognised values.
func ParseKind(value string) Kind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "property", "prop", "attribute":
		return KindProperty
	case "method", "func", "function":
		return KindMethod
	default:
		return KindUnknown
	}
}

// Scope describes where a declaration becomes concrete, derived from potency.
type Scope int

const (
	// ScopeObject declarations (potency 0) are visible on the owner only.
	ScopeObject Scope = iota
	// ScopeInstance declarations (potency 1) are visible on every instance.
	ScopeInstance
	// ScopeDeep declarations (potency >= 2) stay latent until their depth.
	ScopeDeep
)

func (s Scope) String() string {
	switch s {
	case ScopeObject:
		return "object"
	case ScopeInstance:
		return "instance"
	default:
		return "deep"
	}
}

// DeclarationID identifies one declaration.
type DeclarationID string

// Declaration is a named feature attached to a node or carrier.
type Declaration struct {
	ID      DeclarationID `json:"id"`
	Owner   ID            `json:"owner"`
	Carrier ID            `json:"carrier,omitempty"`
	Name    string        `json:"name"`
	Kind    Kind          `json:"kind"`
	Potency int           `json:"potency"`
	Payload any           `json:"payload,omitempty"`
}

// Scope reports the visibility class implied by the declaration's potency.
func (d Declaration) Scope() Scope {
	switch {
	case d.Potency <= 0:
		return ScopeObject
	case d.Potency == 1:
		return ScopeInstance
	default:
		return ScopeDeep
	}
}

// Deep reports whether the declaration lives on a carrier.
func (d Declaration) Deep() bool {
	return d.Scope() == ScopeDeep
}
