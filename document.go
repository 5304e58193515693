package jsl

import (
	"fmt"
	"sort"

	"github.com/aromanovich/jsl/jsonval"
)

// InheritanceMode selects how a document combines its own fields with the
// fields of the documents it extends.
type InheritanceMode string

const (
	// InheritInline flattens the fields of all extended documents into the
	// document's own property map. This is the default.
	InheritInline InheritanceMode = "inline"
	// InheritAllOf emits the extended documents as allOf branches.
	InheritAllOf InheritanceMode = "all_of"
	// InheritAnyOf emits the extended documents as anyOf branches.
	InheritAnyOf InheritanceMode = "any_of"
	// InheritOneOf emits the extended documents as oneOf branches.
	InheritOneOf InheritanceMode = "one_of"
)

func validInheritanceMode(m InheritanceMode) bool {
	switch m {
	case InheritInline, InheritAllOf, InheritAnyOf, InheritOneOf:
		return true
	}
	return false
}

// documentOptions is the resolved option set of a built document. Bases
// contribute their resolved options key by key, first-declared base last
// so that it wins, and the document's own settings override the result.
// definitionID and id identify one document and are never inherited.
type documentOptions struct {
	definitionID         string
	schemaURI            string
	id                   string
	title                any
	description          any
	enum                 any
	defaultVal           any
	additionalProperties any
	patternProperties    any
	minProperties        any
	maxProperties        any
	inheritanceMode      InheritanceMode
	rolesToPropagate     Matcher
}

func defaultDocumentOptions() documentOptions {
	return documentOptions{
		schemaURI:            DraftURI,
		additionalProperties: false,
		inheritanceMode:      InheritInline,
	}
}

func (o *documentOptions) inherit(base documentOptions) {
	o.schemaURI = base.schemaURI
	o.inheritanceMode = base.inheritanceMode
	o.additionalProperties = base.additionalProperties
	if base.title != nil {
		o.title = base.title
	}
	if base.description != nil {
		o.description = base.description
	}
	if base.enum != nil {
		o.enum = base.enum
	}
	if base.defaultVal != nil {
		o.defaultVal = base.defaultVal
	}
	if base.patternProperties != nil {
		o.patternProperties = base.patternProperties
	}
	if base.minProperties != nil {
		o.minProperties = base.minProperties
	}
	if base.maxProperties != nil {
		o.maxProperties = base.maxProperties
	}
	if base.rolesToPropagate != nil {
		o.rolesToPropagate = base.rolesToPropagate
	}
}

// A Document is a named object schema: an ordered field map plus options,
// built once with DocumentBuilder and immutable afterwards. Under a
// composed inheritance mode the document also carries the branch
// documents it extends.
type Document struct {
	name     string
	module   string
	registry *Registry
	opts     documentOptions
	fields   *jsonval.Object
	parents  []*Document
	internal *DictField
}

// Name returns the document's declared name.
func (d *Document) Name() string { return d.name }

// Module returns the module path the document was declared in, or "".
func (d *Document) Module() string { return d.module }

// DefinitionID returns the key the document is hoisted under in the
// definitions section: the configured override, or module-qualified name.
func (d *Document) DefinitionID() string {
	if d.opts.definitionID != "" {
		return d.opts.definitionID
	}
	if d.module != "" {
		return d.module + "." + d.name
	}
	return d.name
}

// Title returns the configured title value, a literal or a *Var, or nil.
func (d *Document) Title() any { return d.opts.title }

// Description returns the configured description value, a literal or a
// *Var, or nil.
func (d *Document) Description() any { return d.opts.description }

// FieldItem is one (name, value) pair of a document's field map; the
// value is a Field or a *Var of one.
type FieldItem struct {
	Name  string
	Value any
}

// FieldItems returns the document's fields in declaration order. For an
// inline document the inherited fields are included; for a composed one
// only the document's own fields appear, its bases being separate
// branches.
func (d *Document) FieldItems() []FieldItem {
	names := d.fields.Keys()
	items := make([]FieldItem, 0, len(names))
	for _, name := range names {
		v, _ := d.fields.Get(name)
		items = append(items, FieldItem{Name: name, Value: v})
	}
	return items
}

// Parents returns the documents emitted as composition branches, sorted
// by definition id. It is empty for a plain inline document.
func (d *Document) Parents() []*Document {
	out := make([]*Document, len(d.parents))
	copy(out, d.parents)
	return out
}

// propagatedRole applies the document's role-propagation matcher to a
// role arriving through a reference to this document.
func (d *Document) propagatedRole(role string) string {
	if d.opts.rolesToPropagate == nil || d.opts.rolesToPropagate.Match(role) {
		return role
	}
	return DefaultRole
}

// walkFieldsResolved walks the document's own field surface under role,
// and with throughDocs also its composition branches and the documents
// its fields reference.
func (d *Document) walkFieldsResolved(role string, throughDocs bool, visited map[*Document]struct{}, visit func(Field)) error {
	if err := walkResolved(d.internal, role, throughDocs, visited, visit); err != nil {
		return err
	}
	if !throughDocs {
		return nil
	}
	for _, p := range d.parents {
		if _, seen := visited[p]; seen {
			continue
		}
		visited[p] = struct{}{}
		if err := p.walkFieldsResolved(role, throughDocs, visited, visit); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits the fields reachable from the document under role in
// depth-first order. With throughDocs it continues into referenced
// documents, visiting each one's fields at most once.
func (d *Document) Walk(role string, throughDocs bool, visit func(Field)) error {
	visited := map[*Document]struct{}{d: {}}
	return d.walkFieldsResolved(role, throughDocs, visited, visit)
}

// WalkAll visits every field declared on the document, including every
// variant carried by conditional values, without resolving roles. It
// does not descend into referenced documents.
func (d *Document) WalkAll(visit func(Field)) {
	walkAll(d.internal, visit)
}

// IsRecursive reports whether the document can reach itself under role
// through a chain of document references and composition branches.
func (d *Document) IsRecursive(role string) (bool, error) {
	found := false
	var lookupErr error
	visited := map[*Document]struct{}{d: {}}
	err := d.walkFieldsResolved(role, true, visited, func(f Field) {
		if found || lookupErr != nil {
			return
		}
		ref, ok := f.(*DocumentField)
		if !ok {
			return
		}
		target, err := ref.Target()
		if err != nil {
			lookupErr = err
			return
		}
		if target == d {
			found = true
		}
	})
	if err != nil {
		return false, err
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	return found, nil
}

// DefinitionsAndSchema renders the document under role within scope.
// A recursive document hoists its body into the returned definitions and
// comes back as a $ref; so does every document the body references that
// turns out to be recursive in its own right.
func (d *Document) DefinitionsAndSchema(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	defs, schema, err := d.emit(role, scope, refs)
	if err != nil {
		return nil, nil, prependStep(err, DocumentStep{Document: d, Role: role})
	}
	return defs, schema, nil
}

func (d *Document) emit(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	recursive, err := d.IsRecursive(role)
	if err != nil {
		return nil, nil, err
	}
	if recursive {
		refs = refs.With(d)
		// Hoisted bodies live next to the schema root, so identifiers
		// inside them resolve against the base URI again.
		scope = scope.WithOutput(scope.Base())
	}
	defs, schema, err := d.emitBody(role, scope, refs)
	if err != nil {
		return nil, nil, err
	}
	if recursive {
		defID := d.DefinitionID()
		defs.Set(defID, schema)
		schema = scope.CreateRef(defID)
	}
	return defs, schema, nil
}

// emitBody renders the composition: branch documents first, each hoisted
// under its own definition id, then the document's own fields as the last
// branch. Without branches the own fields are the whole schema.
func (d *Document) emitBody(role string, scope ResolutionScope, refs *DocumentSet) (*jsonval.Object, *jsonval.Object, error) {
	if len(d.parents) == 0 {
		return d.internal.DefinitionsAndSchema(role, scope, refs)
	}
	defs := jsonval.New()
	branches := make([]any, 0, len(d.parents)+1)
	for _, p := range d.parents {
		pdefs, pschema, err := p.DefinitionsAndSchema(role, scope, refs)
		if err != nil {
			return nil, nil, err
		}
		defs.Merge(pdefs)
		recursive, err := p.IsRecursive(role)
		if err != nil {
			return nil, nil, err
		}
		if recursive {
			// Already a $ref with the body hoisted in pdefs.
			branches = append(branches, pschema)
			continue
		}
		defs.Set(p.DefinitionID(), pschema)
		branches = append(branches, scope.CreateRef(p.DefinitionID()))
	}
	owndefs, ownschema, err := d.internal.DefinitionsAndSchema(role, scope, refs)
	if err != nil {
		return nil, nil, err
	}
	defs.Merge(owndefs)
	branches = append(branches, ownschema)
	return defs, jsonval.New().Set(d.compositionKeyword(), branches), nil
}

func (d *Document) compositionKeyword() string {
	switch d.opts.inheritanceMode {
	case InheritAnyOf:
		return "anyOf"
	case InheritOneOf:
		return "oneOf"
	default:
		// all_of, and inline documents carrying absorbed branches.
		return "allOf"
	}
}

// Schema renders the document to a complete draft-04 schema: the
// configured id, then $schema, then definitions when non-empty, then the
// document's own fragment.
func (d *Document) Schema(opts ...EmitOption) (*jsonval.Object, error) {
	cfg := newEmitConfig(opts)
	scope := NewResolutionScope(d.opts.id, d.opts.id, d.opts.id)
	defs, schema, err := d.DefinitionsAndSchema(cfg.role, scope, nil)
	if err != nil {
		return nil, err
	}
	out := jsonval.New()
	if d.opts.id != "" {
		out.Set("id", d.opts.id)
	}
	if d.opts.schemaURI != "" {
		out.Set("$schema", d.opts.schemaURI)
	}
	if defs.Len() > 0 {
		out.Set("definitions", defs)
	}
	out.Merge(schema)
	if d.opts.id != "" {
		// The body re-emits fragment ids relative to itself (a bare "#"
		// when the root id carries one); the configured value wins.
		out.Set("id", d.opts.id)
	}
	return out, nil
}

// MustSchema is like Schema but panics on error; for declarations whose
// validity is established by tests.
func (d *Document) MustSchema(opts ...EmitOption) *jsonval.Object {
	schema, err := d.Schema(opts...)
	if err != nil {
		panic(err)
	}
	return schema
}

// DocumentBuilder accumulates the fields and options of a document and
// assembles them with Build. A builder describes one document.
type DocumentBuilder struct {
	name   string
	module string
	bases  []*Document
	fields *jsonval.Object
	optFns []func(*documentOptions)
}

// NewDocument starts a document named name.
func NewDocument(name string) *DocumentBuilder {
	return &DocumentBuilder{name: name, fields: jsonval.New()}
}

// InModule sets the module path used for the default definition id and
// for registry lookups of bare document names.
func (b *DocumentBuilder) InModule(module string) *DocumentBuilder {
	b.module = module
	return b
}

// Field declares a property. The value is a Field or a *Var of one;
// redeclaring a name replaces the value but keeps its position.
func (b *DocumentBuilder) Field(name string, v any) *DocumentBuilder {
	b.fields.Set(name, v)
	return b
}

// ScopedField declares a role-conditional variant of a property. A plain
// field already declared under the name becomes the variant's default.
func (b *DocumentBuilder) ScopedField(m Matcher, name string, v any) *DocumentBuilder {
	existing, ok := b.fields.Get(name)
	if !ok {
		b.fields.Set(name, NewVar().WhenMatch(m, v))
		return b
	}
	if cond, isVar := existing.(*Var); isVar {
		cond.WhenMatch(m, v)
		return b
	}
	b.fields.Set(name, NewVar().WhenMatch(m, v).Default(existing))
	return b
}

// Extends declares the documents this one inherits from, in order.
func (b *DocumentBuilder) Extends(bases ...*Document) *DocumentBuilder {
	b.bases = append(b.bases, bases...)
	return b
}

func (b *DocumentBuilder) option(fn func(*documentOptions)) *DocumentBuilder {
	b.optFns = append(b.optFns, fn)
	return b
}

// DefinitionID overrides the key used for this document in definitions.
func (b *DocumentBuilder) DefinitionID(id string) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.definitionID = id })
}

// SchemaURI sets the $schema value; the empty string suppresses the key.
func (b *DocumentBuilder) SchemaURI(uri string) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.schemaURI = uri })
}

// ID sets the document's schema identifier, emitted verbatim at the root
// and used as the URI scope its fields resolve against.
func (b *DocumentBuilder) ID(id string) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.id = id })
}

func (b *DocumentBuilder) Title(v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.title = v })
}

func (b *DocumentBuilder) Description(v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.description = v })
}

func (b *DocumentBuilder) Enum(v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.enum = v })
}

func (b *DocumentBuilder) Default(v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.defaultVal = v })
}

// AdditionalProperties takes a bool, a Field or a *Var of either; the
// default is false.
func (b *DocumentBuilder) AdditionalProperties(v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.additionalProperties = v })
}

// PatternProp adds one pattern property keyed by a regular expression.
func (b *DocumentBuilder) PatternProp(pattern string, v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) {
		o.patternProperties = appendProp(o.patternProperties, pattern, v)
	})
}

// PatternProperties replaces the whole pattern-property set.
func (b *DocumentBuilder) PatternProperties(v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.patternProperties = v })
}

func (b *DocumentBuilder) MinProperties(v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.minProperties = v })
}

func (b *DocumentBuilder) MaxProperties(v any) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.maxProperties = v })
}

// Inheritance sets the inheritance mode; the default is InheritInline.
func (b *DocumentBuilder) Inheritance(m InheritanceMode) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.inheritanceMode = m })
}

// PropagateRoles limits which roles arriving through a reference to this
// document keep flowing into its fields; roles the matcher rejects
// continue as DefaultRole. By default every role propagates.
func (b *DocumentBuilder) PropagateRoles(m Matcher) *DocumentBuilder {
	return b.option(func(o *documentOptions) { o.rolesToPropagate = m })
}

// Build assembles the document, registers it in reg when reg is non-nil,
// and makes it the owner of the document references declared in it. The
// registry is also what the document's bare string references resolve
// against.
func (b *DocumentBuilder) Build(reg *Registry) (*Document, error) {
	for _, base := range b.bases {
		if base == nil {
			return nil, fmt.Errorf("jsl: document %q extends a nil document", b.name)
		}
	}

	opts := defaultDocumentOptions()
	for i := len(b.bases) - 1; i >= 0; i-- {
		opts.inherit(b.bases[i].opts)
	}
	for _, fn := range b.optFns {
		fn(&opts)
	}
	if !validInheritanceMode(opts.inheritanceMode) {
		return nil, fmt.Errorf("jsl: unknown inheritance mode %q: must be one of all_of, any_of, inline, one_of", string(opts.inheritanceMode))
	}

	fields := jsonval.New()
	var parents []*Document
	if opts.inheritanceMode == InheritInline {
		for i := len(b.bases) - 1; i >= 0; i-- {
			fields.Merge(b.bases[i].fields)
		}
		seen := make(map[*Document]struct{})
		for _, base := range b.bases {
			for _, p := range base.parents {
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				parents = append(parents, p)
			}
		}
	} else {
		seen := make(map[*Document]struct{})
		for _, base := range b.bases {
			if _, dup := seen[base]; dup {
				continue
			}
			seen[base] = struct{}{}
			parents = append(parents, base)
		}
	}
	fields.Merge(b.fields)
	sort.Slice(parents, func(i, j int) bool {
		return parents[i].DefinitionID() < parents[j].DefinitionID()
	})

	d := &Document{
		name:     b.name,
		module:   b.module,
		registry: reg,
		opts:     opts,
		fields:   fields,
		parents:  parents,
	}
	var localID any
	if opts.id != "" {
		localID = opts.id
	}
	d.internal = &DictField{
		baseAttrs: baseAttrs{
			id:          localID,
			title:       opts.title,
			description: opts.description,
			enum:        opts.enum,
			defaultVal:  opts.defaultVal,
		},
		properties:           fields,
		patternProperties:    opts.patternProperties,
		additionalProperties: opts.additionalProperties,
		minProperties:        opts.minProperties,
		maxProperties:        opts.maxProperties,
	}

	if reg != nil {
		if err := reg.put(d); err != nil {
			return nil, err
		}
	}
	walkAll(d.internal, func(f Field) {
		if ref, ok := f.(*DocumentField); ok {
			ref.setOwner(d)
		}
	})
	return d, nil
}

// MustBuild is like Build but panics on error; for package-level
// declarations.
func (b *DocumentBuilder) MustBuild(reg *Registry) *Document {
	d, err := b.Build(reg)
	if err != nil {
		panic(err)
	}
	return d
}
