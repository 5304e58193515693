package jsl

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/aromanovich/jsl/jsonval"
)

// resolveChild resolves a child slot under role. present is false when the
// slot is a Var that resolved absent. A slot that is neither a Field nor a
// Var is not resolvable at all; a Var resolving to a non-field value is a
// different mistake and gets a different message.
func resolveChild(v any, role string) (f Field, childRole string, present bool, err error) {
	switch x := v.(type) {
	case Field:
		return x, role, true, nil
	case *Var:
		r := x.Resolve(role)
		if r.Value == nil {
			return nil, r.Role, false, nil
		}
		f, ok := r.Value.(Field)
		if !ok {
			return nil, r.Role, false, generationErrorf("%v is not a field", r.Value)
		}
		return f, r.Role, true, nil
	default:
		return nil, role, false, generationErrorf("%v is not resolvable", v)
	}
}

// ArrayField maps to {"type": "array"}. Items may be a single field for
// homogeneous arrays, a list of fields for tuple typing, or a *Var of
// either; nil emits no items keyword at all.
type ArrayField struct {
	baseAttrs
	items           any
	minItems        any
	maxItems        any
	uniqueItems     any
	additionalItems any
}

// Array returns a new array field. See ArrayField for accepted items.
func Array(items any) *ArrayField { return &ArrayField{items: items} }

func (f *ArrayField) ID(v any) *ArrayField          { f.id = v; return f }
func (f *ArrayField) Title(v any) *ArrayField       { f.title = v; return f }
func (f *ArrayField) Description(v any) *ArrayField { f.description = v; return f }
func (f *ArrayField) Enum(v any) *ArrayField        { f.enum = v; return f }
func (f *ArrayField) Default(v any) *ArrayField     { f.defaultVal = v; return f }
func (f *ArrayField) Required() *ArrayField         { f.required = true; return f }
func (f *ArrayField) RequiredVar(v any) *ArrayField { f.required = v; return f }

func (f *ArrayField) MinItems(v any) *ArrayField    { f.minItems = v; return f }
func (f *ArrayField) MaxItems(v any) *ArrayField    { f.maxItems = v; return f }
func (f *ArrayField) UniqueItems(v any) *ArrayField { f.uniqueItems = v; return f }

// AdditionalItems takes a bool, a Field or a *Var of either.
func (f *ArrayField) AdditionalItems(v any) *ArrayField { f.additionalItems = v; return f }

// Items returns the declared items value: a Field, a []any tuple, a *Var
// of either, or nil.
func (f *ArrayField) Items() any { return f.items }

func (f *ArrayField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emit(role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

func (f *ArrayField) emit(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	scope, err := f.alterScope(role, scope, schema)
	if err != nil {
		return nil, nil, err
	}
	schema.Set("type", "array")
	if err := f.emitCommon(schema, role); err != nil {
		return nil, nil, err
	}
	defs := jsonval.New()
	if f.items != nil {
		if err := f.emitItems(schema, defs, role, scope, refs); err != nil {
			return nil, nil, prependStep(err, AttributeStep{Name: "items", Role: role})
		}
	}
	if f.additionalItems != nil {
		if err := emitBoolOrField(schema, defs, "additionalItems", f.additionalItems, role, scope, refs); err != nil {
			return nil, nil, prependStep(err, AttributeStep{Name: "additionalItems", Role: role})
		}
	}
	setResolved(schema, "minItems", f.minItems, role)
	setResolved(schema, "maxItems", f.maxItems, role)
	setResolvedTrue(schema, "uniqueItems", f.uniqueItems, role)
	return defs, schema, nil
}

func (f *ArrayField) emitItems(schema, defs *jsonval.Object, role string, scope ResolutionScope, refs *DocumentSet) error {
	r := resolve(f.items, role)
	if r.Value == nil {
		return nil
	}
	if child, ok := r.Value.(Field); ok {
		cdefs, cschema, err := child.DefinitionsAndSchema(r.Role, scope, refs)
		if err != nil {
			return err
		}
		defs.Merge(cdefs)
		schema.Set("items", cschema)
		return nil
	}
	list, ok := toAnySlice(r.Value)
	if !ok {
		return generationErrorf("%v is not a field or a list of fields", r.Value)
	}
	rendered := make([]any, 0, len(list))
	for i, raw := range list {
		child, childRole, present, err := resolveChild(raw, r.Role)
		if err != nil {
			return prependStep(err, ItemStep{Key: i, Role: r.Role})
		}
		if !present {
			continue
		}
		cdefs, cschema, err := child.DefinitionsAndSchema(childRole, scope, refs)
		if err != nil {
			return prependStep(err, ItemStep{Key: i, Role: r.Role})
		}
		defs.Merge(cdefs)
		rendered = append(rendered, cschema)
	}
	if len(rendered) == 0 {
		return generationErrorf("items can not be empty")
	}
	schema.Set("items", rendered)
	return nil
}

// emitBoolOrField renders attributes that accept either a bool or a field,
// additionalProperties and additionalItems.
func emitBoolOrField(schema, defs *jsonval.Object, name string, raw any, role string, scope ResolutionScope, refs *DocumentSet) error {
	r := resolve(raw, role)
	if r.Value == nil {
		return nil
	}
	switch v := r.Value.(type) {
	case bool:
		schema.Set(name, v)
	case Field:
		cdefs, cschema, err := v.DefinitionsAndSchema(r.Role, scope, refs)
		if err != nil {
			return err
		}
		defs.Merge(cdefs)
		schema.Set(name, cschema)
	default:
		return generationErrorf("%v is not a field or a bool", r.Value)
	}
	return nil
}

// DictField maps to {"type": "object"}. Properties added with Prop keep
// declaration order; a property set resolved from a plain map emits in
// sorted key order.
type DictField struct {
	baseAttrs
	properties           any
	patternProperties    any
	additionalProperties any
	minProperties        any
	maxProperties        any
}

// Dict returns a new object field.
func Dict() *DictField { return &DictField{} }

func (f *DictField) ID(v any) *DictField          { f.id = v; return f }
func (f *DictField) Title(v any) *DictField       { f.title = v; return f }
func (f *DictField) Description(v any) *DictField { f.description = v; return f }
func (f *DictField) Enum(v any) *DictField        { f.enum = v; return f }
func (f *DictField) Default(v any) *DictField     { f.defaultVal = v; return f }
func (f *DictField) Required() *DictField         { f.required = true; return f }
func (f *DictField) RequiredVar(v any) *DictField { f.required = v; return f }

// Prop adds one property, preserving declaration order.
func (f *DictField) Prop(name string, v any) *DictField {
	f.properties = appendProp(f.properties, name, v)
	return f
}

// Properties replaces the whole property set: a map[string]any or a *Var
// resolving to one.
func (f *DictField) Properties(v any) *DictField { f.properties = v; return f }

// PatternProp adds one pattern property keyed by a regular expression.
func (f *DictField) PatternProp(pattern string, v any) *DictField {
	f.patternProperties = appendProp(f.patternProperties, pattern, v)
	return f
}

// PatternProperties replaces the whole pattern-property set.
func (f *DictField) PatternProperties(v any) *DictField { f.patternProperties = v; return f }

// AdditionalProperties takes a bool, a Field or a *Var of either.
func (f *DictField) AdditionalProperties(v any) *DictField { f.additionalProperties = v; return f }

func (f *DictField) MinProperties(v any) *DictField { f.minProperties = v; return f }
func (f *DictField) MaxProperties(v any) *DictField { f.maxProperties = v; return f }

func appendProp(props any, name string, v any) any {
	obj, ok := props.(*jsonval.Object)
	if !ok {
		obj = jsonval.New()
	}
	return obj.Set(name, v)
}

func (f *DictField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emit(role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

func (f *DictField) emit(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	scope, err := f.alterScope(role, scope, schema)
	if err != nil {
		return nil, nil, err
	}
	schema.Set("type", "object")
	if err := f.emitCommon(schema, role); err != nil {
		return nil, nil, err
	}
	defs := jsonval.New()
	var required []string
	if f.properties != nil {
		props, req, err := emitPropertySet(f.properties, role, scope, refs, defs, false)
		if err != nil {
			return nil, nil, prependStep(err, AttributeStep{Name: "properties", Role: role})
		}
		if props != nil {
			schema.Set("properties", props)
			required = req
		}
	}
	if f.patternProperties != nil {
		props, _, err := emitPropertySet(f.patternProperties, role, scope, refs, defs, true)
		if err != nil {
			return nil, nil, prependStep(err, AttributeStep{Name: "patternProperties", Role: role})
		}
		if props != nil {
			schema.Set("patternProperties", props)
		}
	}
	if f.additionalProperties != nil {
		if err := emitBoolOrField(schema, defs, "additionalProperties", f.additionalProperties, role, scope, refs); err != nil {
			return nil, nil, prependStep(err, AttributeStep{Name: "additionalProperties", Role: role})
		}
	}
	setResolved(schema, "minProperties", f.minProperties, role)
	setResolved(schema, "maxProperties", f.maxProperties, role)
	if len(required) > 0 {
		sort.Strings(required)
		schema.Set("required", required)
	}
	return defs, schema, nil
}

// emitPropertySet renders a property map and collects the names of the
// properties whose field resolves as required. Absent children are
// skipped; a present-but-empty set still emits {}.
func emitPropertySet(raw any, role string, scope ResolutionScope, refs *DocumentSet, defs *jsonval.Object, keysArePatterns bool) (*jsonval.Object, []string, error) {
	r := resolve(raw, role)
	if r.Value == nil {
		return nil, nil, nil
	}
	var names []string
	var get func(string) any
	switch m := r.Value.(type) {
	case *jsonval.Object:
		names = m.Keys()
		get = func(k string) any { v, _ := m.Get(k); return v }
	case map[string]any:
		names = make([]string, 0, len(m))
		for k := range m {
			names = append(names, k)
		}
		sort.Strings(names)
		get = func(k string) any { return m[k] }
	default:
		return nil, nil, generationErrorf("%v is not a dict", r.Value)
	}
	if keysArePatterns {
		for _, name := range names {
			if _, err := regexp.Compile(name); err != nil {
				return nil, nil, generationErrorf("Invalid regular expression: %v", err)
			}
		}
	}
	out := jsonval.New()
	var required []string
	for _, name := range names {
		child, childRole, present, err := resolveChild(get(name), r.Role)
		if err != nil {
			return nil, nil, prependStep(err, ItemStep{Key: name, Role: r.Role})
		}
		if !present {
			continue
		}
		cdefs, cschema, err := child.DefinitionsAndSchema(childRole, scope, refs)
		if err != nil {
			return nil, nil, prependStep(err, ItemStep{Key: name, Role: r.Role})
		}
		defs.Merge(cdefs)
		out.Set(name, cschema)
		req, err := child.IsRequired(childRole)
		if err != nil {
			return nil, nil, prependStep(err, ItemStep{Key: name, Role: r.Role})
		}
		if req {
			required = append(required, name)
		}
	}
	return out, required, nil
}

// ofCore is the shared state of the oneOf/anyOf/allOf fields. The branch
// list holds fields or Vars; it may itself be a single Var resolving to a
// list.
type ofCore struct {
	baseAttrs
	fields any
}

func makeOfFields(args []any) any {
	if len(args) == 1 {
		if v, ok := args[0].(*Var); ok {
			return v
		}
	}
	return args
}

func (a *ofCore) emitOf(keyword, role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	scope, err := a.alterScope(role, scope, schema)
	if err != nil {
		return nil, nil, err
	}
	if err := a.emitCommon(schema, role); err != nil {
		return nil, nil, err
	}
	defs := jsonval.New()
	if err := a.emitBranches(schema, defs, keyword, role, scope, refs); err != nil {
		return nil, nil, prependStep(err, AttributeStep{Name: "fields", Role: role})
	}
	return defs, schema, nil
}

func (a *ofCore) emitBranches(schema, defs *jsonval.Object, keyword, role string, scope ResolutionScope, refs *DocumentSet) error {
	r := resolve(a.fields, role)
	var list []any
	switch v := r.Value.(type) {
	case nil:
		// fall through to the emptiness check
	case Field:
		list = []any{v}
	default:
		var ok bool
		list, ok = toAnySlice(v)
		if !ok {
			return generationErrorf("%v is not a list of fields", v)
		}
	}
	rendered := make([]any, 0, len(list))
	for i, raw := range list {
		child, childRole, present, err := resolveChild(raw, r.Role)
		if err != nil {
			return prependStep(err, ItemStep{Key: i, Role: r.Role})
		}
		if !present {
			continue
		}
		cdefs, cschema, err := child.DefinitionsAndSchema(childRole, scope, refs)
		if err != nil {
			return prependStep(err, ItemStep{Key: i, Role: r.Role})
		}
		defs.Merge(cdefs)
		rendered = append(rendered, cschema)
	}
	if len(rendered) == 0 {
		return generationErrorf("fields can not be empty")
	}
	schema.Set(keyword, rendered)
	return nil
}

// OneOfField maps to {"oneOf": [...]}.
type OneOfField struct {
	ofCore
}

// OneOf builds a oneOf field. Each argument is a Field or a *Var; a single
// *Var argument makes the whole branch list conditional.
func OneOf(fields ...any) *OneOfField {
	return &OneOfField{ofCore{fields: makeOfFields(fields)}}
}

func (f *OneOfField) ID(v any) *OneOfField          { f.id = v; return f }
func (f *OneOfField) Title(v any) *OneOfField       { f.title = v; return f }
func (f *OneOfField) Description(v any) *OneOfField { f.description = v; return f }
func (f *OneOfField) Enum(v any) *OneOfField        { f.enum = v; return f }
func (f *OneOfField) Default(v any) *OneOfField     { f.defaultVal = v; return f }
func (f *OneOfField) Required() *OneOfField         { f.required = true; return f }
func (f *OneOfField) RequiredVar(v any) *OneOfField { f.required = v; return f }

func (f *OneOfField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emitOf("oneOf", role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

// AnyOfField maps to {"anyOf": [...]}.
type AnyOfField struct {
	ofCore
}

// AnyOf builds an anyOf field; arguments as for OneOf.
func AnyOf(fields ...any) *AnyOfField {
	return &AnyOfField{ofCore{fields: makeOfFields(fields)}}
}

func (f *AnyOfField) ID(v any) *AnyOfField          { f.id = v; return f }
func (f *AnyOfField) Title(v any) *AnyOfField       { f.title = v; return f }
func (f *AnyOfField) Description(v any) *AnyOfField { f.description = v; return f }
func (f *AnyOfField) Enum(v any) *AnyOfField        { f.enum = v; return f }
func (f *AnyOfField) Default(v any) *AnyOfField     { f.defaultVal = v; return f }
func (f *AnyOfField) Required() *AnyOfField         { f.required = true; return f }
func (f *AnyOfField) RequiredVar(v any) *AnyOfField { f.required = v; return f }

func (f *AnyOfField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emitOf("anyOf", role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

// AllOfField maps to {"allOf": [...]}.
type AllOfField struct {
	ofCore
}

// AllOf builds an allOf field; arguments as for OneOf.
func AllOf(fields ...any) *AllOfField {
	return &AllOfField{ofCore{fields: makeOfFields(fields)}}
}

func (f *AllOfField) ID(v any) *AllOfField          { f.id = v; return f }
func (f *AllOfField) Title(v any) *AllOfField       { f.title = v; return f }
func (f *AllOfField) Description(v any) *AllOfField { f.description = v; return f }
func (f *AllOfField) Enum(v any) *AllOfField        { f.enum = v; return f }
func (f *AllOfField) Default(v any) *AllOfField     { f.defaultVal = v; return f }
func (f *AllOfField) Required() *AllOfField         { f.required = true; return f }
func (f *AllOfField) RequiredVar(v any) *AllOfField { f.required = v; return f }

func (f *AllOfField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emitOf("allOf", role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

// NotField maps to {"not": {...}}; an absent child emits {"not": {}}.
type NotField struct {
	baseAttrs
	field any
}

// Not wraps a field (or a *Var of one) in the not keyword.
func Not(v any) *NotField { return &NotField{field: v} }

func (f *NotField) ID(v any) *NotField          { f.id = v; return f }
func (f *NotField) Title(v any) *NotField       { f.title = v; return f }
func (f *NotField) Description(v any) *NotField { f.description = v; return f }
func (f *NotField) Enum(v any) *NotField        { f.enum = v; return f }
func (f *NotField) Default(v any) *NotField     { f.defaultVal = v; return f }
func (f *NotField) Required() *NotField         { f.required = true; return f }
func (f *NotField) RequiredVar(v any) *NotField { f.required = v; return f }

func (f *NotField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emit(role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

func (f *NotField) emit(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	scope, err := f.alterScope(role, scope, schema)
	if err != nil {
		return nil, nil, err
	}
	if err := f.emitCommon(schema, role); err != nil {
		return nil, nil, err
	}
	defs := jsonval.New()
	r := resolve(f.field, role)
	if r.Value == nil {
		schema.Set("not", jsonval.New())
		return defs, schema, nil
	}
	child, ok := r.Value.(Field)
	if !ok {
		return nil, nil, prependStep(generationErrorf("%v is not a field", r.Value), AttributeStep{Name: "field", Role: role})
	}
	cdefs, cschema, err := child.DefinitionsAndSchema(r.Role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, AttributeStep{Name: "field", Role: role})
	}
	defs.Merge(cdefs)
	schema.Set("not", cschema)
	return defs, schema, nil
}

// DocumentField embeds another document: a *Document, a registry name
// ("module.Name" or bare), or Self for the declaring document. The owner
// back-reference is set once when the declaring document is built.
type DocumentField struct {
	baseAttrs
	target any
	asRef  bool
	owner  *Document
}

// DocField returns a field referencing target.
func DocField(target any) *DocumentField { return &DocumentField{target: target} }

func (f *DocumentField) Required() *DocumentField         { f.required = true; return f }
func (f *DocumentField) RequiredVar(v any) *DocumentField { f.required = v; return f }

// AsRef hoists the target into definitions and emits a $ref even when the
// target is not recursive.
func (f *DocumentField) AsRef() *DocumentField { f.asRef = true; return f }

// Owner returns the document the field was declared in, or nil before the
// declaring document is built.
func (f *DocumentField) Owner() *Document { return f.owner }

func (f *DocumentField) setOwner(d *Document) {
	if f.owner == nil {
		f.owner = d
	}
}

// Target resolves the reference to its document.
func (f *DocumentField) Target() (*Document, error) {
	switch t := f.target.(type) {
	case *Document:
		return t, nil
	case string:
		if t == Self {
			if f.owner == nil {
				return nil, errors.New("jsl: self reference used before its document was built: owner is not set")
			}
			return f.owner, nil
		}
		if f.owner == nil || f.owner.registry == nil {
			return nil, fmt.Errorf("jsl: cannot resolve document %q: no registry attached", t)
		}
		return f.owner.registry.lookup(t, f.owner.module)
	default:
		return nil, fmt.Errorf("jsl: %v is not a document reference", f.target)
	}
}

func (f *DocumentField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := f.emit(role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	return defs, schema, nil
}

func (f *DocumentField) emit(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	target, err := f.Target()
	if err != nil {
		return nil, nil, err
	}
	defID := target.DefinitionID()
	if refs.Contains(target) {
		return jsonval.New(), scope.CreateRef(defID), nil
	}
	nextRole := target.propagatedRole(role)
	defs, schema, err := target.DefinitionsAndSchema(nextRole, scope, refs)
	if err != nil {
		return nil, nil, err
	}
	if f.asRef {
		recursive, err := target.IsRecursive(nextRole)
		if err != nil {
			return nil, nil, err
		}
		if !recursive {
			defs.Set(defID, schema)
			return defs, scope.CreateRef(defID), nil
		}
	}
	return defs, schema, nil
}

// RefField emits a raw {"$ref": pointer} without touching definitions.
type RefField struct {
	baseAttrs
	pointer string
}

// Ref returns a field emitting a literal JSON reference.
func Ref(pointer string) *RefField { return &RefField{pointer: pointer} }

func (f *RefField) ID(v any) *RefField          { f.id = v; return f }
func (f *RefField) Title(v any) *RefField       { f.title = v; return f }
func (f *RefField) Description(v any) *RefField { f.description = v; return f }
func (f *RefField) Required() *RefField         { f.required = true; return f }
func (f *RefField) RequiredVar(v any) *RefField { f.required = v; return f }

// Pointer returns the literal reference the field emits.
func (f *RefField) Pointer() string { return f.pointer }

func (f *RefField) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	schema := jsonval.New()
	if _, err := f.alterScope(role, scope, schema); err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	if err := f.emitCommon(schema, role); err != nil {
		return nil, nil, prependStep(err, FieldStep{Field: f, Role: role})
	}
	schema.Set("$ref", f.pointer)
	return jsonval.New(), schema, nil
}
