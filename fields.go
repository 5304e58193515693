package jsl

import (
	"reflect"

	"github.com/aromanovich/jsl/jsonval"
)

// Self is the DocumentField target referring to the document the field is
// declared in.
const Self = "self"

// DraftURI is the default $schema value emitted for documents.
const DraftURI = "http://json-schema.org/draft-04/schema#"

// Field is implemented by every schema-mapped node.
type Field interface {
	// DefinitionsAndSchema renders the field under role within scope. It
	// returns the definitions the fragment references together with the
	// fragment itself. Documents in refs are emitted as $refs instead of
	// being inlined.
	DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error)
	// IsRequired reports whether the field resolves as required under role.
	IsRequired(role string) (bool, error)
}

// EmitOption configures schema emission.
type EmitOption func(*emitConfig)

type emitConfig struct {
	role string
}

// WithRole selects the role a schema is emitted for; the default is
// DefaultRole.
func WithRole(role string) EmitOption {
	return func(c *emitConfig) { c.role = role }
}

func newEmitConfig(opts []EmitOption) emitConfig {
	cfg := emitConfig{role: DefaultRole}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// SchemaOf renders a bare field to a complete schema, appending a
// definitions key when the field references hoisted documents.
func SchemaOf(f Field, opts ...EmitOption) (*jsonval.Object, error) {
	cfg := newEmitConfig(opts)
	defs, schema, err := f.DefinitionsAndSchema(cfg.role, ResolutionScope{}, nil)
	if err != nil {
		return nil, err
	}
	if defs.Len() > 0 {
		schema.Set("definitions", defs)
	}
	return schema, nil
}

// DocumentSet is a set of documents that emission references via $ref
// instead of inlining. A nil *DocumentSet is the empty set; With copies,
// so sets on different emission branches stay independent.
type DocumentSet struct {
	members map[*Document]struct{}
}

// NewDocumentSet builds a set from the given documents.
func NewDocumentSet(docs ...*Document) *DocumentSet {
	s := &DocumentSet{members: make(map[*Document]struct{}, len(docs))}
	for _, d := range docs {
		s.members[d] = struct{}{}
	}
	return s
}

// Contains reports whether d is in the set.
func (s *DocumentSet) Contains(d *Document) bool {
	if s == nil {
		return false
	}
	_, ok := s.members[d]
	return ok
}

// With returns a copy of the set that also contains d.
func (s *DocumentSet) With(d *Document) *DocumentSet {
	next := &DocumentSet{members: make(map[*Document]struct{}, s.len()+1)}
	if s != nil {
		for m := range s.members {
			next.members[m] = struct{}{}
		}
	}
	next.members[d] = struct{}{}
	return next
}

func (s *DocumentSet) len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// baseAttrs carries the attributes shared by every schema-mapped field.
// Each slot holds a literal value or a *Var.
type baseAttrs struct {
	id          any
	title       any
	description any
	enum        any
	defaultVal  any
	required    any
}

// IsRequired resolves the required flag under role.
func (a *baseAttrs) IsRequired(role string) (bool, error) {
	r := resolve(a.required, role)
	if r.Value == nil {
		return false, nil
	}
	b, ok := r.Value.(bool)
	if !ok {
		return false, generationErrorf("%v is not a bool", r.Value)
	}
	return b, nil
}

// alterScope resolves the field's local id, writes the emitted form into
// schema and returns the scope children render in.
func (a *baseAttrs) alterScope(role string, scope ResolutionScope, schema *jsonval.Object) (ResolutionScope, error) {
	r := resolve(a.id, role)
	if r.Value == nil {
		return scope, nil
	}
	id, ok := r.Value.(string)
	if !ok {
		return scope, generationErrorf("%v is not a string", r.Value)
	}
	if id == "" {
		return scope, nil
	}
	emitted, next := scope.Alter(id)
	if emitted != "" {
		schema.Set("id", emitted)
	}
	return next, nil
}

// emitCommon writes title, description, enum and default into schema.
// Enum emits only when it resolves to a non-empty list; both enum and
// default accept zero-argument generator funcs in place of values.
func (a *baseAttrs) emitCommon(schema *jsonval.Object, role string) error {
	if r := resolve(a.title, role); r.Value != nil {
		schema.Set("title", r.Value)
	}
	if r := resolve(a.description, role); r.Value != nil {
		schema.Set("description", r.Value)
	}
	if r := resolve(a.enum, role); r.Value != nil {
		items, ok := toAnySlice(callValue(r.Value))
		if !ok {
			return generationErrorf("%v is not a list", r.Value)
		}
		if len(items) > 0 {
			schema.Set("enum", items)
		}
	}
	if r := resolve(a.defaultVal, role); r.Value != nil {
		if v := callValue(r.Value); v != nil {
			schema.Set("default", v)
		}
	}
	return nil
}

// setResolved writes an attribute into schema when it resolves non-nil.
func setResolved(schema *jsonval.Object, name string, value any, role string) {
	if r := resolve(value, role); r.Value != nil {
		schema.Set(name, r.Value)
	}
}

// setResolvedTrue writes a boolean keyword only when it resolves true.
func setResolvedTrue(schema *jsonval.Object, name string, value any, role string) {
	if r := resolve(value, role); r.Value != nil {
		if b, ok := r.Value.(bool); ok && b {
			schema.Set(name, true)
		}
	}
}

// callValue expands zero-argument generator funcs into their value.
func callValue(v any) any {
	switch fn := v.(type) {
	case func() any:
		return fn()
	case func() []any:
		return fn()
	default:
		return v
	}
}

// toAnySlice normalizes any slice value to []any.
func toAnySlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
