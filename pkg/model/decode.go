package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// SchemaError reports a field-scoped decode failure: which field broke
// and why. It never represents a silent drop; a payload that fails
// validation produces exactly one SchemaError naming the first offender.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "schema: " + e.Reason
	}
	return "schema: field " + e.Field + ": " + e.Reason
}

// Resource is any decoded GitHub entity with a stable identifier.
// Unknown payload fields are preserved in an Extra side channel instead
// of being dropped, so a re-serialized resource round-trips additively
// evolved schemas without data loss.
type Resource interface {
	ResourceID() int64
	setExtra(map[string]json.RawMessage)
	extra() map[string]json.RawMessage
	validate() *SchemaError
}

// resourcePtr constrains P to "pointer to T implementing Resource".
type resourcePtr[T any] interface {
	*T
	Resource
}

// knownFieldsCache maps a struct type to the set of json tag names its
// typed fields cover. Computed once per type.
var knownFieldsCache sync.Map // reflect.Type -> map[string]struct{}

func knownFields(t reflect.Type) map[string]struct{} {
	if cached, ok := knownFieldsCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	fields := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name != "" {
			fields[name] = struct{}{}
		}
	}
	knownFieldsCache.Store(t, fields)
	return fields
}

// Decode parses rawJSON into a typed resource. Failures are field
// scoped: a type mismatch names the offending field, and validation
// names the first missing required field. Fields the type does not
// declare land in the resource's Extra map untouched.
func Decode[T any, P resourcePtr[T]](rawJSON []byte) (P, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(rawJSON, &all); err != nil {
		return nil, &SchemaError{Reason: "not a JSON object: " + err.Error()}
	}

	res := P(new(T))
	if err := json.Unmarshal(rawJSON, res); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			return nil, &SchemaError{
				Field:  typeErr.Field,
				Reason: "cannot decode " + typeErr.Value + " into " + typeErr.Type.String(),
			}
		}
		return nil, &SchemaError{Reason: err.Error()}
	}

	known := knownFields(reflect.TypeOf(*new(T)))
	var extra map[string]json.RawMessage
	for name, raw := range all {
		if _, ok := known[name]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[name] = raw
	}
	if extra != nil {
		res.setExtra(extra)
	}

	if serr := res.validate(); serr != nil {
		return nil, serr
	}
	return res, nil
}

// Encode re-serializes a resource, merging preserved unknown fields back
// in so the output is a superset-faithful image of the original payload.
func Encode(res Resource) ([]byte, error) {
	typed, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	extra := res.extra()
	if len(extra) == 0 {
		return typed, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(typed, &merged); err != nil {
		return nil, err
	}
	for name, raw := range extra {
		if _, ok := merged[name]; !ok {
			merged[name] = raw
		}
	}
	return json.Marshal(merged)
}
