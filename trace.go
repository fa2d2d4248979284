package clabject

import (
	"encoding/json"
)

// Trace captures provenance information for a feature lookup across every
// node consulted, in lookup order.
type Trace struct {
	Node    NodeID       `json:"node"`
	Feature string       `json:"feature"`
	Layers  []Provenance `json:"layers"`
}

// Provenance details how one node contributed to a traced lookup. Found is
// true whenever the node holds a visible declaration of the feature, so
// shadowed declarations are reported too; the first found layer wins.
type Provenance struct {
	Node          NodeID        `json:"node"`
	Name          string        `json:"name,omitempty"`
	Carrier       bool          `json:"carrier,omitempty"`
	DeclarationID DeclarationID `json:"declaration_id,omitempty"`
	Potency       int           `json:"potency,omitempty"`
	Value         any           `json:"value,omitempty"`
	Found         bool          `json:"found"`
}

// Winner returns the layer that supplied the resolved declaration.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
