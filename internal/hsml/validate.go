package hsml

import (
	"fmt"

	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
)

// requiredFields is the static per-type schema the registry enforces before
// issuing a DID or touching the store.
var requiredFields = map[domain.EntityType][]string{
	domain.TypePerson:       {"name", "birthDate", "email"},
	domain.TypeOrganization: {"name", "description", "url", "address", "logo", "foundingDate", "email"},
	domain.TypeAgent:        {"name", "creator", "dateCreated", "dateModified", "description"},
	domain.TypeCredential:   {"name", "description", "issuedBy", "accessAuthorization", "authorizedForDomain"},
	domain.TypeEntity:       {"name", "description"},
}

// Validate runs the ordered schema checks: well-formed object, recognized
// @context dialect, known @type, required fields present and non-empty.
// Warnings are advisory only and never alter control flow.
func Validate(d Document) (warnings []string, err error) {
	if d == nil {
		return nil, dErrors.NewKind(dErrors.KindMalformedInput, "document is empty")
	}
	if !d.HasRecognizedContext() {
		return nil, dErrors.NewKind(dErrors.KindUnrecognizedSchema, "not a valid HSML document (missing @context)")
	}
	entityType := d.Type()
	if entityType == "" {
		return nil, dErrors.NewKind(dErrors.KindUnknownType,
			fmt.Sprintf("unsupported or unknown entity type: %q", d.RawType()))
	}

	var missing []string
	for _, field := range requiredFields[entityType] {
		if isEmpty(d[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, dErrors.NewKind(dErrors.KindMissingFields,
			fmt.Sprintf("missing required fields: %v", missing)).WithFields(missing...)
	}

	return advisories(d, entityType), nil
}

// advisories collects the non-blocking schema warnings.
func advisories(d Document, entityType domain.EntityType) []string {
	var warnings []string
	switch entityType {
	case domain.TypePerson:
		if isEmpty(d["affiliation"]) {
			warnings = append(warnings, "'affiliation' field is missing")
		}
	case domain.TypeCredential:
		if isEmpty(d["validFrom"]) || isEmpty(d["validUntil"]) {
			warnings = append(warnings, "credential has no expiration date")
		}
	case domain.TypeEntity:
		if isEmpty(d["linkedTo"]) {
			warnings = append(warnings, "entity is not linked to any other entity")
		}
	}
	return warnings
}

// isEmpty mirrors the registration contract: a field is missing when absent,
// null, or the empty string. Structured values count as present.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}
