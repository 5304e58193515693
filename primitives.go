package jsl

import (
	"fmt"
	"regexp"

	"github.com/aromanovich/jsl/jsonval"
)

// BooleanField maps to {"type": "boolean"}.
type BooleanField struct {
	baseAttrs
}

// Boolean returns a new boolean field.
func Boolean() *BooleanField { return &BooleanField{} }

func (f *BooleanField) ID(v any) *BooleanField          { f.id = v; return f }
func (f *BooleanField) Title(v any) *BooleanField       { f.title = v; return f }
func (f *BooleanField) Description(v any) *BooleanField { f.description = v; return f }
func (f *BooleanField) Enum(v any) *BooleanField        { f.enum = v; return f }
func (f *BooleanField) Default(v any) *BooleanField     { f.defaultVal = v; return f }

// Required marks the field required; RequiredVar takes a bool or a *Var.
func (f *BooleanField) Required() *BooleanField         { f.required = true; return f }
func (f *BooleanField) RequiredVar(v any) *BooleanField { f.required = v; return f }

func (f *BooleanField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emit(role, scope)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

func (f *BooleanField) emit(role string, scope ResolutionScope) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	if _, err := f.alterScope(role, scope, schema); err != nil {
		return nil, nil, err
	}
	schema.Set("type", "boolean")
	if err := f.emitCommon(schema, role); err != nil {
		return nil, nil, err
	}
	return jsonval.New(), schema, nil
}

// StringField maps to {"type": "string"} with the draft-04 string facets.
type StringField struct {
	baseAttrs
	pattern   any
	format    any
	minLength any
	maxLength any
}

// String returns a new string field.
func String() *StringField { return &StringField{} }

// Email returns a string field preset with the email format.
func Email() *StringField { return String().Format("email") }

// IPv4 returns a string field preset with the ipv4 format.
func IPv4() *StringField { return String().Format("ipv4") }

// DateTime returns a string field preset with the date-time format.
func DateTime() *StringField { return String().Format("date-time") }

// URI returns a string field preset with the uri format.
func URI() *StringField { return String().Format("uri") }

func (f *StringField) ID(v any) *StringField          { f.id = v; return f }
func (f *StringField) Title(v any) *StringField       { f.title = v; return f }
func (f *StringField) Description(v any) *StringField { f.description = v; return f }
func (f *StringField) Enum(v any) *StringField        { f.enum = v; return f }
func (f *StringField) Default(v any) *StringField     { f.defaultVal = v; return f }
func (f *StringField) Required() *StringField         { f.required = true; return f }
func (f *StringField) RequiredVar(v any) *StringField { f.required = v; return f }

// Pattern sets the regular expression the string must match. The literal
// pattern and every string variant inside a *Var are validated eagerly;
// an invalid expression panics at declaration time.
func (f *StringField) Pattern(v any) *StringField {
	validatePatternValue(v)
	f.pattern = v
	return f
}

// Format sets the format keyword; on the preset constructors it overrides
// the preset.
func (f *StringField) Format(v any) *StringField    { f.format = v; return f }
func (f *StringField) MinLength(v any) *StringField { f.minLength = v; return f }
func (f *StringField) MaxLength(v any) *StringField { f.maxLength = v; return f }

func (f *StringField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emit(role, scope)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

func (f *StringField) emit(role string, scope ResolutionScope) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	if _, err := f.alterScope(role, scope, schema); err != nil {
		return nil, nil, err
	}
	schema.Set("type", "string")
	if err := f.emitCommon(schema, role); err != nil {
		return nil, nil, err
	}
	if r := resolve(f.pattern, role); r.Value != nil {
		p, ok := r.Value.(string)
		if !ok {
			return nil, nil, generationErrorf("%v is not a string", r.Value)
		}
		if _, err := regexp.Compile(p); err != nil {
			return nil, nil, generationErrorf("Invalid regular expression: %v", err)
		}
		schema.Set("pattern", p)
	}
	setResolved(schema, "format", f.format, role)
	setResolved(schema, "minLength", f.minLength, role)
	setResolved(schema, "maxLength", f.maxLength, role)
	return jsonval.New(), schema, nil
}

func validatePatternValue(v any) {
	switch p := v.(type) {
	case string:
		mustValidPattern(p)
	case *Var:
		for _, pair := range p.pairs {
			if s, ok := pair.value.(string); ok {
				mustValidPattern(s)
			}
		}
		if s, ok := p.fallback.(string); ok {
			mustValidPattern(s)
		}
	}
}

func mustValidPattern(p string) {
	if _, err := regexp.Compile(p); err != nil {
		panic(fmt.Sprintf("jsl: invalid regular expression %q: %v", p, err))
	}
}

// NumberField maps to {"type": "number"} with the draft-04 numeric facets.
type NumberField struct {
	baseAttrs
	multipleOf       any
	minimum          any
	maximum          any
	exclusiveMinimum any
	exclusiveMaximum any
}

// Number returns a new number field.
func Number() *NumberField { return &NumberField{} }

func (f *NumberField) ID(v any) *NumberField          { f.id = v; return f }
func (f *NumberField) Title(v any) *NumberField       { f.title = v; return f }
func (f *NumberField) Description(v any) *NumberField { f.description = v; return f }
func (f *NumberField) Enum(v any) *NumberField        { f.enum = v; return f }
func (f *NumberField) Default(v any) *NumberField     { f.defaultVal = v; return f }
func (f *NumberField) Required() *NumberField         { f.required = true; return f }
func (f *NumberField) RequiredVar(v any) *NumberField { f.required = v; return f }

// MultipleOf sets the multipleOf keyword; a non-positive literal panics.
func (f *NumberField) MultipleOf(v any) *NumberField {
	mustPositiveMultiple(v)
	f.multipleOf = v
	return f
}

func (f *NumberField) Minimum(v any) *NumberField { f.minimum = v; return f }
func (f *NumberField) Maximum(v any) *NumberField { f.maximum = v; return f }

// ExclusiveMinimum/ExclusiveMaximum emit their keyword only when the
// value resolves true.
func (f *NumberField) ExclusiveMinimum(v any) *NumberField { f.exclusiveMinimum = v; return f }
func (f *NumberField) ExclusiveMaximum(v any) *NumberField { f.exclusiveMaximum = v; return f }

func (f *NumberField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := emitNumeric(&f.baseAttrs, "number", numericFacets{
		multipleOf:       f.multipleOf,
		minimum:          f.minimum,
		maximum:          f.maximum,
		exclusiveMinimum: f.exclusiveMinimum,
		exclusiveMaximum: f.exclusiveMaximum,
	}, role, scope)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

// IntField is the integer specialization of NumberField.
type IntField struct {
	baseAttrs
	multipleOf       any
	minimum          any
	maximum          any
	exclusiveMinimum any
	exclusiveMaximum any
}

// Int returns a new integer field.
func Int() *IntField { return &IntField{} }

func (f *IntField) ID(v any) *IntField          { f.id = v; return f }
func (f *IntField) Title(v any) *IntField       { f.title = v; return f }
func (f *IntField) Description(v any) *IntField { f.description = v; return f }
func (f *IntField) Enum(v any) *IntField        { f.enum = v; return f }
func (f *IntField) Default(v any) *IntField     { f.defaultVal = v; return f }
func (f *IntField) Required() *IntField         { f.required = true; return f }
func (f *IntField) RequiredVar(v any) *IntField { f.required = v; return f }

func (f *IntField) MultipleOf(v any) *IntField {
	mustPositiveMultiple(v)
	f.multipleOf = v
	return f
}

func (f *IntField) Minimum(v any) *IntField          { f.minimum = v; return f }
func (f *IntField) Maximum(v any) *IntField          { f.maximum = v; return f }
func (f *IntField) ExclusiveMinimum(v any) *IntField { f.exclusiveMinimum = v; return f }
func (f *IntField) ExclusiveMaximum(v any) *IntField { f.exclusiveMaximum = v; return f }

func (f *IntField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := emitNumeric(&f.baseAttrs, "integer", numericFacets{
		multipleOf:       f.multipleOf,
		minimum:          f.minimum,
		maximum:          f.maximum,
		exclusiveMinimum: f.exclusiveMinimum,
		exclusiveMaximum: f.exclusiveMaximum,
	}, role, scope)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

type numericFacets struct {
	multipleOf       any
	minimum          any
	maximum          any
	exclusiveMinimum any
	exclusiveMaximum any
}

func emitNumeric(a *baseAttrs, typeName string, facets numericFacets, role string, scope ResolutionScope) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	if _, err := a.alterScope(role, scope, schema); err != nil {
		return nil, nil, err
	}
	schema.Set("type", typeName)
	if err := a.emitCommon(schema, role); err != nil {
		return nil, nil, err
	}
	setResolved(schema, "multipleOf", facets.multipleOf, role)
	setResolved(schema, "minimum", facets.minimum, role)
	setResolved(schema, "maximum", facets.maximum, role)
	setResolvedTrue(schema, "exclusiveMinimum", facets.exclusiveMinimum, role)
	setResolvedTrue(schema, "exclusiveMaximum", facets.exclusiveMaximum, role)
	return jsonval.New(), schema, nil
}

func mustPositiveMultiple(v any) {
	switch n := v.(type) {
	case int:
		if n <= 0 {
			panic("jsl: multipleOf must be positive")
		}
	case float64:
		if n <= 0 {
			panic("jsl: multipleOf must be positive")
		}
	}
}

// NullField maps to {"type": "null"}.
type NullField struct {
	baseAttrs
}

// Null returns a new null field.
func Null() *NullField { return &NullField{} }

func (f *NullField) ID(v any) *NullField          { f.id = v; return f }
func (f *NullField) Title(v any) *NullField       { f.title = v; return f }
func (f *NullField) Description(v any) *NullField { f.description = v; return f }
func (f *NullField) Enum(v any) *NullField        { f.enum = v; return f }
func (f *NullField) Default(v any) *NullField     { f.defaultVal = v; return f }
func (f *NullField) Required() *NullField         { f.required = true; return f }
func (f *NullField) RequiredVar(v any) *NullField { f.required = v; return f }

func (f *NullField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	if _, err := f.alterScope(role, scope, schema); err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	schema.Set("type", "null")
	if err := f.emitCommon(schema, role); err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return jsonval.New(), schema, nil
}
