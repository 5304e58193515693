// Package manifest compiles document declarations from YAML or JSON
// manifests. A manifest names a module and a list of documents; each
// document carries its options, its bases and a field tree. Manifests
// hold plain literals only, role variants stay in code.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aromanovich/jsl"
)

type manifestDoc struct {
	Module    string         `yaml:"module"`
	Documents []documentSpec `yaml:"documents"`
}

type documentSpec struct {
	Name                 string      `yaml:"name"`
	Title                string      `yaml:"title"`
	Description          string      `yaml:"description"`
	ID                   string      `yaml:"id"`
	SchemaURI            *string     `yaml:"schemaUri"`
	DefinitionID         string      `yaml:"definitionId"`
	Extends              []string    `yaml:"extends"`
	Mode                 string      `yaml:"mode"`
	AdditionalProperties yaml.Node   `yaml:"additionalProperties"`
	PatternProperties    []fieldSpec `yaml:"patternProperties"`
	MinProperties        *int        `yaml:"minProperties"`
	MaxProperties        *int        `yaml:"maxProperties"`
	Fields               []fieldSpec `yaml:"fields"`
}

// fieldSpec is the one declaration shape shared by every field kind.
// Type selects the kind; slots irrelevant to it are ignored. The
// yaml.Node slots hold positions where the manifest grammar allows more
// than one shape.
type fieldSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Required    bool   `yaml:"required"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Enum        []any  `yaml:"enum"`
	Default     any    `yaml:"default"`

	Format    string `yaml:"format"`
	Pattern   string `yaml:"pattern"`
	MinLength *int   `yaml:"minLength"`
	MaxLength *int   `yaml:"maxLength"`

	Minimum          *float64 `yaml:"minimum"`
	Maximum          *float64 `yaml:"maximum"`
	ExclusiveMinimum bool     `yaml:"exclusiveMinimum"`
	ExclusiveMaximum bool     `yaml:"exclusiveMaximum"`
	MultipleOf       *float64 `yaml:"multipleOf"`

	Items           yaml.Node `yaml:"items"`
	AdditionalItems yaml.Node `yaml:"additionalItems"`
	MinItems        *int      `yaml:"minItems"`
	MaxItems        *int      `yaml:"maxItems"`
	UniqueItems     bool      `yaml:"uniqueItems"`

	Properties           []fieldSpec `yaml:"properties"`
	PatternProperties    []fieldSpec `yaml:"patternProperties"`
	AdditionalProperties yaml.Node   `yaml:"additionalProperties"`
	MinProperties        *int        `yaml:"minProperties"`
	MaxProperties        *int        `yaml:"maxProperties"`

	Fields []fieldSpec `yaml:"fields"`
	Field  *fieldSpec  `yaml:"field"`

	Target string `yaml:"target"`
	AsRef  bool   `yaml:"asRef"`
	Ref    string `yaml:"ref"`
}

// Load reads a stream of manifests from r, in YAML or JSON form, and
// compiles every declared document against reg. Documents may extend or
// reference documents declared earlier in the stream, or anything
// already present in reg. The returned slice preserves declaration
// order.
func Load(r io.Reader, reg *jsl.Registry) ([]*jsl.Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var docs []*jsl.Document
	for {
		var m manifestDoc
		if err := dec.Decode(&m); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("manifest: decoding: %w", err)
		}
		for i := range m.Documents {
			doc, err := buildDocument(&m, &m.Documents[i], reg)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// LoadBytes is Load over an in-memory manifest.
func LoadBytes(data []byte, reg *jsl.Registry) ([]*jsl.Document, error) {
	return Load(bytes.NewReader(data), reg)
}

func buildDocument(m *manifestDoc, ds *documentSpec, reg *jsl.Registry) (*jsl.Document, error) {
	if ds.Name == "" {
		return nil, errors.New("manifest: document missing a name")
	}
	b := jsl.NewDocument(ds.Name)
	if m.Module != "" {
		b.InModule(m.Module)
	}
	if ds.Title != "" {
		b.Title(ds.Title)
	}
	if ds.Description != "" {
		b.Description(ds.Description)
	}
	if ds.ID != "" {
		b.ID(ds.ID)
	}
	if ds.SchemaURI != nil {
		b.SchemaURI(*ds.SchemaURI)
	}
	if ds.DefinitionID != "" {
		b.DefinitionID(ds.DefinitionID)
	}
	if ds.Mode != "" {
		b.Inheritance(jsl.InheritanceMode(ds.Mode))
	}
	for _, name := range ds.Extends {
		base, err := lookupBase(reg, name, m.Module)
		if err != nil {
			return nil, fmt.Errorf("manifest: document %q: %w", ds.Name, err)
		}
		b.Extends(base)
	}
	ap, err := boolOrField(&ds.AdditionalProperties)
	if err != nil {
		return nil, fmt.Errorf("manifest: document %q: %w", ds.Name, err)
	}
	if ap != nil {
		b.AdditionalProperties(ap)
	}
	for i := range ds.PatternProperties {
		ps := &ds.PatternProperties[i]
		f, err := buildField(ps)
		if err != nil {
			return nil, fmt.Errorf("manifest: document %q: pattern %q: %w", ds.Name, ps.Name, err)
		}
		b.PatternProp(ps.Name, f)
	}
	if ds.MinProperties != nil {
		b.MinProperties(*ds.MinProperties)
	}
	if ds.MaxProperties != nil {
		b.MaxProperties(*ds.MaxProperties)
	}
	for i := range ds.Fields {
		fs := &ds.Fields[i]
		if fs.Name == "" {
			return nil, fmt.Errorf("manifest: document %q: field missing a name", ds.Name)
		}
		f, err := buildField(fs)
		if err != nil {
			return nil, fmt.Errorf("manifest: document %q: field %q: %w", ds.Name, fs.Name, err)
		}
		b.Field(fs.Name, f)
	}
	doc, err := b.Build(reg)
	if err != nil {
		return nil, fmt.Errorf("manifest: document %q: %w", ds.Name, err)
	}
	return doc, nil
}

// lookupBase resolves an extends entry, as written first and then
// qualified with the manifest module.
func lookupBase(reg *jsl.Registry, name, module string) (*jsl.Document, error) {
	d, err := reg.Get(name)
	if err == nil {
		return d, nil
	}
	if module != "" {
		if d, qerr := reg.Get(module + "." + name); qerr == nil {
			return d, nil
		}
	}
	return nil, err
}

// commonAttrs is satisfied by every chainable field type that carries
// the shared schema annotations.
type commonAttrs[T any] interface {
	Title(any) T
	Description(any) T
	Enum(any) T
	Default(any) T
	Required() T
}

func applyCommon[T commonAttrs[T]](f T, s *fieldSpec) T {
	if s.Title != "" {
		f.Title(s.Title)
	}
	if s.Description != "" {
		f.Description(s.Description)
	}
	if len(s.Enum) > 0 {
		f.Enum(s.Enum)
	}
	if s.Default != nil {
		f.Default(s.Default)
	}
	if s.Required {
		f.Required()
	}
	return f
}

func buildField(s *fieldSpec) (jsl.Field, error) {
	switch s.Type {
	case "boolean":
		return applyCommon(jsl.Boolean(), s), nil
	case "string":
		f := jsl.String()
		if s.Format != "" {
			f.Format(s.Format)
		}
		if s.Pattern != "" {
			f.Pattern(s.Pattern)
		}
		if s.MinLength != nil {
			f.MinLength(*s.MinLength)
		}
		if s.MaxLength != nil {
			f.MaxLength(*s.MaxLength)
		}
		return applyCommon(f, s), nil
	case "number":
		f := jsl.Number()
		if s.Minimum != nil {
			f.Minimum(*s.Minimum)
		}
		if s.Maximum != nil {
			f.Maximum(*s.Maximum)
		}
		if s.ExclusiveMinimum {
			f.ExclusiveMinimum(true)
		}
		if s.ExclusiveMaximum {
			f.ExclusiveMaximum(true)
		}
		if s.MultipleOf != nil {
			f.MultipleOf(*s.MultipleOf)
		}
		return applyCommon(f, s), nil
	case "integer":
		f := jsl.Int()
		if s.Minimum != nil {
			f.Minimum(*s.Minimum)
		}
		if s.Maximum != nil {
			f.Maximum(*s.Maximum)
		}
		if s.ExclusiveMinimum {
			f.ExclusiveMinimum(true)
		}
		if s.ExclusiveMaximum {
			f.ExclusiveMaximum(true)
		}
		if s.MultipleOf != nil {
			f.MultipleOf(*s.MultipleOf)
		}
		return applyCommon(f, s), nil
	case "null":
		return applyCommon(jsl.Null(), s), nil
	case "array":
		items, err := fieldOrTuple(&s.Items)
		if err != nil {
			return nil, err
		}
		f := jsl.Array(items)
		ai, err := boolOrField(&s.AdditionalItems)
		if err != nil {
			return nil, err
		}
		if ai != nil {
			f.AdditionalItems(ai)
		}
		if s.MinItems != nil {
			f.MinItems(*s.MinItems)
		}
		if s.MaxItems != nil {
			f.MaxItems(*s.MaxItems)
		}
		if s.UniqueItems {
			f.UniqueItems(true)
		}
		return applyCommon(f, s), nil
	case "object":
		f := jsl.Dict()
		for i := range s.Properties {
			p := &s.Properties[i]
			if p.Name == "" {
				return nil, errors.New("manifest: object property missing a name")
			}
			child, err := buildField(p)
			if err != nil {
				return nil, err
			}
			f.Prop(p.Name, child)
		}
		for i := range s.PatternProperties {
			p := &s.PatternProperties[i]
			child, err := buildField(p)
			if err != nil {
				return nil, err
			}
			f.PatternProp(p.Name, child)
		}
		ap, err := boolOrField(&s.AdditionalProperties)
		if err != nil {
			return nil, err
		}
		if ap != nil {
			f.AdditionalProperties(ap)
		}
		if s.MinProperties != nil {
			f.MinProperties(*s.MinProperties)
		}
		if s.MaxProperties != nil {
			f.MaxProperties(*s.MaxProperties)
		}
		return applyCommon(f, s), nil
	case "oneOf", "anyOf", "allOf":
		if len(s.Fields) == 0 {
			return nil, fmt.Errorf("manifest: %s needs fields", s.Type)
		}
		branches := make([]any, len(s.Fields))
		for i := range s.Fields {
			child, err := buildField(&s.Fields[i])
			if err != nil {
				return nil, err
			}
			branches[i] = child
		}
		switch s.Type {
		case "oneOf":
			return applyCommon(jsl.OneOf(branches...), s), nil
		case "anyOf":
			return applyCommon(jsl.AnyOf(branches...), s), nil
		default:
			return applyCommon(jsl.AllOf(branches...), s), nil
		}
	case "not":
		if s.Field == nil {
			return nil, errors.New("manifest: not needs a field")
		}
		inner, err := buildField(s.Field)
		if err != nil {
			return nil, err
		}
		return applyCommon(jsl.Not(inner), s), nil
	case "document":
		if s.Target == "" {
			return nil, errors.New("manifest: document field needs a target")
		}
		f := jsl.DocField(s.Target)
		if s.AsRef {
			f.AsRef()
		}
		if s.Required {
			f.Required()
		}
		return f, nil
	case "ref":
		if s.Ref == "" {
			return nil, errors.New("manifest: ref field needs a pointer")
		}
		f := jsl.Ref(s.Ref)
		if s.Title != "" {
			f.Title(s.Title)
		}
		if s.Description != "" {
			f.Description(s.Description)
		}
		if s.Required {
			f.Required()
		}
		return f, nil
	case "":
		return nil, errors.New("manifest: field missing a type")
	default:
		return nil, fmt.Errorf("manifest: unknown field type %q", s.Type)
	}
}

// fieldOrTuple decodes an items slot holding a single field or a list
// of fields for positional validation.
func fieldOrTuple(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.MappingNode:
		var s fieldSpec
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		return buildField(&s)
	case yaml.SequenceNode:
		var specs []fieldSpec
		if err := n.Decode(&specs); err != nil {
			return nil, err
		}
		tuple := make([]any, len(specs))
		for i := range specs {
			f, err := buildField(&specs[i])
			if err != nil {
				return nil, err
			}
			tuple[i] = f
		}
		return tuple, nil
	default:
		return nil, errors.New("manifest: items must be a field or a list of fields")
	}
}

// boolOrField decodes an additionalProperties or additionalItems slot.
func boolOrField(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, errors.New("manifest: expected a boolean or a field")
		}
		return b, nil
	case yaml.MappingNode:
		var s fieldSpec
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		return buildField(&s)
	default:
		return nil, errors.New("manifest: expected a boolean or a field")
	}
}
