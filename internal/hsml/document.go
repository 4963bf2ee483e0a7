// Package hsml models the structured, type-tagged entity documents the
// registry accepts (Person, Organization, Agent, Entity, Credential) and
// validates them against the per-type schema before any core logic runs.
package hsml

import (
	"encoding/json"

	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
)

// DefaultContext is the HSML schema dialect every stored document carries.
const DefaultContext = "https://digital-twin-interoperability.github.io/hsml-schema-context/hsml.jsonld"

// contextMarker identifies the dialect inside whatever @context value a
// caller supplies.
const contextMarker = "hsml.jsonld"

// Document is an HSML entity description. The wire shape is a loose JSON
// object; typed accessors below are the only way core logic reads it.
type Document map[string]any

// Parse decodes raw JSON into a Document.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.NewKind(dErrors.KindMalformedInput, "document is not a well-formed JSON object")
	}
	if doc == nil {
		return nil, dErrors.NewKind(dErrors.KindMalformedInput, "document is empty")
	}
	return doc, nil
}

// FromAny coerces a decoded JSON value (e.g. a nested request field) into a
// Document.
func FromAny(v any) (Document, error) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil, dErrors.NewKind(dErrors.KindMalformedInput, "entity data must be a JSON object")
	}
	return Document(m), nil
}

// Clone deep-copies the document via a JSON round trip so store layers never
// alias caller-held trees.
func (d Document) Clone() Document {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// Type returns the @type discriminant; empty for unknown or missing types.
func (d Document) Type() domain.EntityType {
	return domain.ParseEntityType(d.str("@type"))
}

// RawType returns the verbatim @type value for error detail.
func (d Document) RawType() string { return d.str("@type") }

// SWID returns the document's DID, if one is set.
func (d Document) SWID() domain.DID { return domain.DID(d.str("swid")) }

// SetSWID stamps the issued DID onto the document. Any caller-supplied value
// is overwritten; the registry never trusts a client-chosen identifier.
func (d Document) SetSWID(did domain.DID) { d["swid"] = did.String() }

// Name returns the document's display name.
func (d Document) Name() string { return d.str("name") }

// EnsureContext stamps the default schema dialect when the caller omitted it.
func (d Document) EnsureContext() {
	if _, ok := d["@context"]; !ok {
		d["@context"] = DefaultContext
	}
}

// HasRecognizedContext reports whether the @context value names the HSML
// dialect. The value may be a single string or a JSON-LD context list.
func (d Document) HasRecognizedContext() bool {
	switch v := d["@context"].(type) {
	case string:
		return containsMarker(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && containsMarker(s) {
				return true
			}
		}
	}
	return false
}

func containsMarker(s string) bool {
	for i := 0; i+len(contextMarker) <= len(s); i++ {
		if s[i:i+len(contextMarker)] == contextMarker {
			return true
		}
	}
	return false
}

// Ref is an embedded entity reference ({swid, name, ...}) such as a
// Credential's issuedBy or authorizedForDomain.
type Ref struct {
	SWID domain.DID
	Name string
	Raw  map[string]any
}

// Ref extracts an embedded reference field. The boolean is false when the
// field is absent or not an object.
func (d Document) Ref(field string) (Ref, bool) {
	m, ok := d[field].(map[string]any)
	if !ok {
		return Ref{}, false
	}
	ref := Ref{Raw: m}
	if s, ok := m["swid"].(string); ok {
		ref.SWID = domain.DID(s)
	}
	if s, ok := m["name"].(string); ok {
		ref.Name = s
	}
	return ref, true
}

// CanAccess returns the domain's access list, coercing a legacy single
// object into a one-element list.
func (d Document) CanAccess() []map[string]any {
	switch v := d["canAccess"].(type) {
	case nil:
		return nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{v}
	}
	return nil
}

// GrantAccess appends an accessAuthorization sub-document to canAccess if no
// entry with the same swid exists yet. Returns true when the list changed.
func (d Document) GrantAccess(grant map[string]any) bool {
	grantDID, _ := grant["swid"].(string)
	existing := d.CanAccess()
	for _, entry := range existing {
		if s, ok := entry["swid"].(string); ok && s == grantDID {
			d.setCanAccess(existing)
			return false
		}
	}
	d.setCanAccess(append(existing, grant))
	return true
}

func (d Document) setCanAccess(entries []map[string]any) {
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = e
	}
	d["canAccess"] = list
}

func (d Document) str(key string) string {
	s, _ := d[key].(string)
	return s
}
