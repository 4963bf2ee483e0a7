// Package domain holds the shared identifier and enum types used across
// services. It stays free of infrastructure imports so every layer can
// depend on it.
package domain

import "strings"

// DID is a decentralized identifier derived deterministically from a public
// key. It is the primary key for every registry record.
type DID string

func (d DID) String() string { return string(d) }

// IsZero reports whether the DID is unset.
func (d DID) IsZero() bool { return d == "" }

// EntityType is the HSML `@type` discriminant of a registered document.
type EntityType string

const (
	TypePerson       EntityType = "Person"
	TypeOrganization EntityType = "Organization"
	TypeAgent        EntityType = "Agent"
	TypeEntity       EntityType = "Entity"
	TypeCredential   EntityType = "Credential"
)

// KnownEntityTypes lists every type the registry accepts, in the order the
// schema documents them.
var KnownEntityTypes = []EntityType{
	TypePerson,
	TypeOrganization,
	TypeAgent,
	TypeEntity,
	TypeCredential,
}

// IsKnownEntityType reports whether t is one of the five registered types.
func IsKnownEntityType(t EntityType) bool {
	switch t {
	case TypePerson, TypeOrganization, TypeAgent, TypeEntity, TypeCredential:
		return true
	}
	return false
}

// CanSelfRegister reports whether documents of this type are registered
// without a prior authenticated identity.
func (t EntityType) CanSelfRegister() bool {
	return t == TypePerson || t == TypeOrganization
}

// CanAuthorNewEntities reports whether an identity of this type may register
// Agents, Entities, and Credentials on behalf of others. It is also the
// login eligibility rule.
func (t EntityType) CanAuthorNewEntities() bool {
	return t == TypePerson || t == TypeOrganization
}

// ParseEntityType normalizes a raw discriminant string. The zero value is
// returned for unknown input; callers decide how to reject it.
func ParseEntityType(raw string) EntityType {
	t := EntityType(strings.TrimSpace(raw))
	if IsKnownEntityType(t) {
		return t
	}
	return ""
}
