// Package schema provides composable payload descriptors.
//
// A Descriptor validates untyped wire input (as produced by a JSON decoder)
// into a typed canonical value, and serializes a typed canonical value back
// into its untyped wire form. Canonical values are built on scalars:
// string, int64, map[string]any and []any.
//
// Descriptors compose: Object and ArrayOf wrap other descriptors, so the
// shape of a whole payload is declared as a single value.
package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSchemaViolation is the sentinel all validation and serialization
// failures are joined with, so callers can classify with errors.Is.
var ErrSchemaViolation = errors.New("value does not match schema")

// FieldError describes a single mismatched field: where it was found,
// what shape was expected and what was actually supplied.
type FieldError struct {
	Path     string // empty for the root value
	Expected string
	Got      any
}

func (e *FieldError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("expected %s, got %T", e.Expected, e.Got)
	}

	return fmt.Sprintf("%s: expected %s, got %T", e.Path, e.Expected, e.Got)
}

// Descriptor is a composable specification of a payload shape.
type Descriptor interface {
	// Kind names the expected shape, used in error messages.
	Kind() string

	// Validate checks an untyped value and returns its typed canonical form.
	Validate(value any) (any, error)

	// Serialize converts a typed canonical value into its untyped wire form.
	Serialize(value any) (any, error)
}

// Field binds a name to the Descriptor of an object member.
type Field struct {
	Name   string
	Schema Descriptor
}

// F is a shorthand constructor for Field.
func F(name string, schema Descriptor) Field {
	return Field{Name: name, Schema: schema}
}

// String returns a descriptor matching a plain string.
func String() Descriptor {
	return stringDescriptor{}
}

// Int returns a descriptor matching an integer. JSON decoders hand numbers
// over as float64, so integral floats are accepted; the canonical form is int64.
func Int() Descriptor {
	return intDescriptor{}
}

// IntFromString returns a descriptor matching an integer encoded as a decimal
// string, as found in URL path segments. The canonical form is int64.
func IntFromString() Descriptor {
	return intFromStringDescriptor{}
}

// Object returns a descriptor matching a JSON object with the given fields.
// All declared fields are required; undeclared members are ignored.
func Object(fields ...Field) Descriptor {
	return objectDescriptor{fields: fields}
}

// ArrayOf returns a descriptor matching an array whose elements all match elem.
func ArrayOf(elem Descriptor) Descriptor {
	return arrayDescriptor{elem: elem}
}

func violation(expected string, got any) error {
	return errors.Join(ErrSchemaViolation, &FieldError{Expected: expected, Got: got})
}

// prefixPath prepends a path segment to the FieldError inside err, if any.
// Errors are freshly created per call, so mutating the FieldError is safe.
func prefixPath(err error, segment string) error {
	var fieldErr *FieldError

	switch {
	case !errors.As(err, &fieldErr):
	case fieldErr.Path == "":
		fieldErr.Path = segment
	case strings.HasPrefix(fieldErr.Path, "["):
		fieldErr.Path = segment + fieldErr.Path
	default:
		fieldErr.Path = segment + "." + fieldErr.Path
	}

	return err
}

type stringDescriptor struct{}

func (stringDescriptor) Kind() string {
	return "string"
}

func (d stringDescriptor) Validate(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, violation(d.Kind(), value)
	}

	return str, nil
}

func (d stringDescriptor) Serialize(value any) (any, error) {
	return d.Validate(value)
}

type intDescriptor struct{}

func (intDescriptor) Kind() string {
	return "integer"
}

func (d intDescriptor) Validate(value any) (any, error) {
	switch typed := value.(type) {
	case int:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case float64:
		// 2^63 and above (or below -2^63) would overflow the int64 conversion.
		if typed != math.Trunc(typed) || typed < math.MinInt64 || typed >= math.MaxInt64 {
			return nil, violation(d.Kind(), value)
		}

		return int64(typed), nil
	default:
		return nil, violation(d.Kind(), value)
	}
}

func (d intDescriptor) Serialize(value any) (any, error) {
	return d.Validate(value)
}

type intFromStringDescriptor struct{}

func (intFromStringDescriptor) Kind() string {
	return "integer-encoded string"
}

func (d intFromStringDescriptor) Validate(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, violation(d.Kind(), value)
	}

	parsed, parseErr := strconv.ParseInt(str, 10, 64)
	if parseErr != nil {
		return nil, violation(d.Kind(), value)
	}

	return parsed, nil
}

func (d intFromStringDescriptor) Serialize(value any) (any, error) {
	typed, err := Int().Validate(value)
	if err != nil {
		return nil, violation("integer", value)
	}

	return strconv.FormatInt(typed.(int64), 10), nil
}

type objectDescriptor struct {
	fields []Field
}

func (objectDescriptor) Kind() string {
	return "object"
}

func (d objectDescriptor) Validate(value any) (any, error) {
	members, ok := value.(map[string]any)
	if !ok {
		return nil, violation(d.Kind(), value)
	}

	typed := make(map[string]any, len(d.fields))

	for _, field := range d.fields {
		member, present := members[field.Name]
		if !present {
			return nil, errors.Join(
				ErrSchemaViolation,
				&FieldError{Path: field.Name, Expected: field.Schema.Kind(), Got: nil},
			)
		}

		typedMember, memberErr := field.Schema.Validate(member)
		if memberErr != nil {
			return nil, prefixPath(memberErr, field.Name)
		}

		typed[field.Name] = typedMember
	}

	return typed, nil
}

func (d objectDescriptor) Serialize(value any) (any, error) {
	members, ok := value.(map[string]any)
	if !ok {
		return nil, violation(d.Kind(), value)
	}

	wire := make(map[string]any, len(d.fields))

	for _, field := range d.fields {
		member, present := members[field.Name]
		if !present {
			return nil, errors.Join(
				ErrSchemaViolation,
				&FieldError{Path: field.Name, Expected: field.Schema.Kind(), Got: nil},
			)
		}

		wireMember, memberErr := field.Schema.Serialize(member)
		if memberErr != nil {
			return nil, prefixPath(memberErr, field.Name)
		}

		wire[field.Name] = wireMember
	}

	return wire, nil
}

type arrayDescriptor struct {
	elem Descriptor
}

func (arrayDescriptor) Kind() string {
	return "array"
}

func (d arrayDescriptor) Validate(value any) (any, error) {
	elems, ok := value.([]any)
	if !ok {
		return nil, violation(d.Kind(), value)
	}

	typed := make([]any, 0, len(elems))

	for i, elem := range elems {
		typedElem, elemErr := d.elem.Validate(elem)
		if elemErr != nil {
			return nil, prefixPath(elemErr, fmt.Sprintf("[%d]", i))
		}

		typed = append(typed, typedElem)
	}

	return typed, nil
}

func (d arrayDescriptor) Serialize(value any) (any, error) {
	elems, ok := value.([]any)
	if !ok {
		return nil, violation(d.Kind(), value)
	}

	wire := make([]any, 0, len(elems))

	for i, elem := range elems {
		wireElem, elemErr := d.elem.Serialize(elem)
		if elemErr != nil {
			return nil, prefixPath(elemErr, fmt.Sprintf("[%d]", i))
		}

		wire = append(wire, wireElem)
	}

	return wire, nil
}
