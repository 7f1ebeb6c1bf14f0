// Package itemjson decodes remote JSON payloads into typed records after checking
// them against a declared field contract.
//
// Two payload shapes are supported: a flat object whose fields map one to one
// onto the record, and an envelope object carrying the records as an array under
// the "items" key. Every declared field is required and must have the declared
// JSON type; unknown fields are ignored. Only the declared keys, matched exactly,
// ever reach the record.
package itemjson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// EnvelopeKey is the object key holding the record array in envelope payloads.
const EnvelopeKey = "items"

// Kind is the JSON type a field must carry.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	// KindIntegerString is an integer sent as a JSON string of decimal digits.
	// The record field needs the ",string" json tag option.
	KindIntegerString
)

func (k Kind) schema() *jsonschema.Schema {
	switch k {
	case KindInteger:
		return &jsonschema.Schema{Type: "integer"}
	case KindIntegerString:
		return &jsonschema.Schema{Type: "string", Pattern: `^-?[0-9]+$`}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

// Field declares one required field of a record.
type Field struct {
	Name string
	Kind Kind
}

// String declares a required JSON string field.
func String(name string) Field { return Field{Name: name, Kind: KindString} }

// Integer declares a required JSON integer field.
func Integer(name string) Field { return Field{Name: name, Kind: KindInteger} }

// IntegerString declares a required integer field carried as a quoted number.
func IntegerString(name string) Field { return Field{Name: name, Kind: KindIntegerString} }

// Decoder turns payloads into records of type T. It holds no mutable state and is
// safe for concurrent use.
type Decoder[T any] struct {
	record   string
	fields   []string
	item     *jsonschema.Resolved
	envelope *jsonschema.Resolved
}

// NewDecoder compiles the field contract of record T. The json tags of T must use
// the same names as fields.
func NewDecoder[T any](record string, fields ...Field) (*Decoder[T], error) {
	record = strings.TrimSpace(record)
	if record == "" {
		return nil, fmt.Errorf("record name is empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("record %q declares no fields", record)
	}

	props := make(map[string]*jsonschema.Schema, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, fmt.Errorf("record %q has a field without a name", record)
		}
		// encoding/json folds case when matching keys to struct fields.
		for _, seen := range required {
			if strings.EqualFold(seen, name) {
				return nil, fmt.Errorf("record %q declares field %q twice", record, name)
			}
		}
		props[name] = f.Kind.schema()
		required = append(required, name)
	}

	item, err := (&jsonschema.Schema{
		Type:       "object",
		Required:   required,
		Properties: props,
	}).Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve %s schema: %w", record, err)
	}

	envelope, err := (&jsonschema.Schema{
		Type:     "object",
		Required: []string{EnvelopeKey},
		Properties: map[string]*jsonschema.Schema{
			EnvelopeKey: {Type: "array"},
		},
	}).Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve %s envelope schema: %w", record, err)
	}

	return &Decoder[T]{record: record, fields: required, item: item, envelope: envelope}, nil
}

// MustNewDecoder is like NewDecoder but panics on an invalid contract. It is meant
// for package-level decoders.
func MustNewDecoder[T any](record string, fields ...Field) *Decoder[T] {
	d, err := NewDecoder[T](record, fields...)
	if err != nil {
		panic(err)
	}
	return d
}

// Record returns the record name used in errors.
func (d *Decoder[T]) Record() string { return d.record }

// DecodeObject decodes a flat JSON object into one record.
func (d *Decoder[T]) DecodeObject(body []byte) (T, error) {
	return d.decodeItem(body, -1)
}

// DecodeEnvelope decodes the "items" array of an envelope object. Records keep
// the array order; the first invalid element fails the whole payload.
func (d *Decoder[T]) DecodeEnvelope(body []byte) ([]T, error) {
	var instance any
	if err := json.Unmarshal(body, &instance); err != nil {
		return nil, d.fail(-1, fmt.Errorf("malformed json: %w", err))
	}
	if err := d.envelope.Validate(instance); err != nil {
		return nil, d.fail(-1, err)
	}

	var env struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, d.fail(-1, err)
	}

	out := make([]T, 0, len(env.Items))
	for i, raw := range env.Items {
		rec, err := d.decodeItem(raw, i)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *Decoder[T]) decodeItem(body []byte, index int) (T, error) {
	var zero T

	var instance any
	if err := json.Unmarshal(body, &instance); err != nil {
		return zero, d.fail(index, fmt.Errorf("malformed json: %w", err))
	}
	if err := d.item.Validate(instance); err != nil {
		return zero, d.fail(index, err)
	}

	declared, err := d.project(body)
	if err != nil {
		return zero, d.fail(index, err)
	}
	var rec T
	if err := json.Unmarshal(declared, &rec); err != nil {
		return zero, d.fail(index, err)
	}
	return rec, nil
}

// project re-encodes a validated object with only the declared keys, so keys
// differing from a declared name by case alone cannot override it.
func (d *Decoder[T]) project(body []byte) ([]byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	kept := make(map[string]json.RawMessage, len(d.fields))
	for _, name := range d.fields {
		kept[name] = obj[name]
	}
	return json.Marshal(kept)
}

func (d *Decoder[T]) fail(index int, err error) error {
	return &DecodeError{Record: d.record, Index: index, Err: err}
}
