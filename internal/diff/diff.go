// Package diff computes field-level change sets between a resource pre-image
// and a submitted payload.
package diff

import (
	"reflect"

	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/registry"
)

// Redact returns a copy of payload with every listed sensitive field replaced
// by the redaction marker. The original map is never modified and the raw
// value never leaves this function.
func Redact(payload map[string]any, sensitive []string) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, field := range sensitive {
		if _, ok := out[field]; ok {
			out[field] = registry.RedactionMarker
		}
	}
	return out
}

// Changes compares a pre-image against a submitted payload and returns the
// {from, to} pair for every payload field whose value differs. Fields absent
// from the payload are never reported, even when the pre-image has a value:
// only intended changes count.
//
// Comparison is strict value equality with no type coercion, so a numeric id
// resubmitted as a string reports as changed. Masking that would require
// per-resource type knowledge this engine deliberately does not have.
func Changes(preImage, payload map[string]any) map[string]models.FieldChange {
	changes := make(map[string]models.FieldChange)
	for field, newValue := range payload {
		oldValue, existed := preImage[field]
		if existed && equal(oldValue, newValue) {
			continue
		}
		if !existed {
			oldValue = nil
		}
		if !existed && newValue == nil {
			continue
		}
		changes[field] = models.FieldChange{From: oldValue, To: newValue}
	}
	return changes
}

// RedactChanges masks both sides of any change touching a sensitive field.
// The entry itself survives, so the trail still shows that the field changed
// without exposing either value.
func RedactChanges(changes map[string]models.FieldChange, sensitive []string) map[string]models.FieldChange {
	for _, field := range sensitive {
		if _, ok := changes[field]; ok {
			changes[field] = models.FieldChange{
				From: registry.RedactionMarker,
				To:   registry.RedactionMarker,
			}
		}
	}
	return changes
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
