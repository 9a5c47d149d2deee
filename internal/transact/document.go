package transact

import (
	"encoding/json"
	"fmt"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/sid"
)

// jsonInput is one line of the gl CLI's transact input file: a subject,
// predicate, and either a literal Object or an ObjectIRI reference, plus
// the retract/meta flags Input carries.
type jsonInput struct {
	Subject   string         `json:"subject"`
	Predicate string         `json:"predicate"`
	Object    any            `json:"object,omitempty"`
	ObjectIRI string         `json:"objectIRI,omitempty"`
	Retract   bool           `json:"retract,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// ParseDocument decodes a JSON array of transact statements into Inputs.
func ParseDocument(data []byte) ([]Input, error) {
	var raw []jsonInput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("transact: parse document: %w", err)
	}
	out := make([]Input, 0, len(raw))
	for i, r := range raw {
		in, err := r.toInput()
		if err != nil {
			return nil, fmt.Errorf("transact: statement %d: %w", i, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func (r jsonInput) toInput() (Input, error) {
	in := Input{
		Subject:   r.Subject,
		Predicate: r.Predicate,
		ObjectIRI: r.ObjectIRI,
		Retract:   r.Retract,
		Meta:      flake.Meta(r.Meta),
	}
	if r.ObjectIRI != "" {
		return in, nil
	}
	switch v := r.Object.(type) {
	case string:
		in.Object = flake.LitObject(v, sid.XSDString, "")
	case float64:
		if v == float64(int64(v)) {
			in.Object = flake.LitObject(int64(v), sid.XSDInteger, "")
		} else {
			in.Object = flake.LitObject(v, sid.XSDDouble, "")
		}
	case bool:
		in.Object = flake.LitObject(v, sid.XSDBoolean, "")
	case nil:
		return Input{}, fmt.Errorf("missing object or objectIRI")
	default:
		return Input{}, fmt.Errorf("unsupported object value %v (%T)", v, v)
	}
	return in, nil
}
