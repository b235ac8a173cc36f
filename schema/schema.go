// Package schema implements typed validation of user-endpoint input data.
// A Structure is a field-name -> descriptor map; every declared field is
// required, may be constrained by type, and may additionally demand a
// non-empty value.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package schema

import (
	"fmt"
	"math"
)

type (
	Kind int

	// Field describes one input field. Zero value accepts anything.
	Field struct {
		Kind     Kind
		Nonempty bool
	}

	Structure struct {
		name   string
		fields map[string]Field
	}

	ErrValidation struct {
		structure string
		field     string
		reason    string
	}
)

const (
	Any Kind = iota
	String
	Int
	Float
	Bool
	Object
	List
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "integer"
	case Float:
		return "number"
	case Bool:
		return "boolean"
	case Object:
		return "object"
	case List:
		return "list"
	}
	return "any"
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("%s: field %q %s", e.structure, e.field, e.reason)
}

// Field constructors

func Text() Field         { return Field{Kind: String} }
func TextNonempty() Field { return Field{Kind: String, Nonempty: true} }
func Integer() Field      { return Field{Kind: Int} }
func Number() Field       { return Field{Kind: Float} }
func Boolean() Field      { return Field{Kind: Bool} }
func Obj() Field          { return Field{Kind: Object} }
func Sequence() Field     { return Field{Kind: List} }

// New builds a Structure; all declared fields are required.
func New(name string, fields map[string]Field) *Structure {
	return &Structure{name: name, fields: fields}
}

// Validate checks data against the structure: every declared field must be
// present, of the declared type, and non-empty when so constrained.
// Undeclared fields are ignored. Returns nil or the first *ErrValidation.
func (s *Structure) Validate(data map[string]any) error {
	for name, field := range s.fields {
		v, ok := data[name]
		if !ok {
			return &ErrValidation{s.name, name, "is required"}
		}
		if err := s.check(name, field, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Structure) check(name string, f Field, v any) error {
	fail := func(reason string) error { return &ErrValidation{s.name, name, reason} }
	mismatch := func() error { return fail(fmt.Sprintf("must be of type %s (got %T)", f.Kind, v)) }
	switch f.Kind {
	case Any:
		if f.Nonempty && v == nil {
			return fail("must not be empty")
		}
	case String:
		sv, ok := v.(string)
		if !ok {
			return mismatch()
		}
		if f.Nonempty && sv == "" {
			return fail("must not be empty")
		}
	case Int:
		if !isIntegral(v) {
			return mismatch()
		}
	case Float:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return mismatch()
		}
	case Bool:
		if _, ok := v.(bool); !ok {
			return mismatch()
		}
	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			return mismatch()
		}
		if f.Nonempty && len(m) == 0 {
			return fail("must not be empty")
		}
	case List:
		l, ok := v.([]any)
		if !ok {
			return mismatch()
		}
		if f.Nonempty && len(l) == 0 {
			return fail("must not be empty")
		}
	}
	return nil
}

// isIntegral: JSON numbers decode as float64; accept them when they carry
// no fractional part.
func isIntegral(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return n == math.Trunc(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n) == math.Trunc(float64(n))
	}
	return false
}
