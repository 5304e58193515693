// Package gen renders compiled documents as plain Go struct
// declarations, one struct per document, with json tags derived from
// the default-role required flags. The output is a single formatted
// source file suitable for go:generate.
package gen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"regexp"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/aromanovich/jsl"
)

var fileTemplate = template.Must(template.New("file").Parse(`// Code generated by jslc. DO NOT EDIT.

package {{.Package}}
{{range .Structs}}
{{.Comment}}type {{.Name}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}} {{.Tag}}
{{- end}}
}
{{end}}`))

type fileData struct {
	Package string
	Structs []structData
}

type structData struct {
	Name    string
	Comment string
	Fields  []fieldData
}

type fieldData struct {
	Name string
	Type string
	Tag  string
}

// File renders a Go source file declaring one struct per document, in
// the order given. Field slots holding a Var are resolved under the
// default role; slots resolving to nil are omitted. The result is
// gofmt-formatted.
func File(pkg string, docs []*jsl.Document) ([]byte, error) {
	if pkg == "" {
		return nil, errors.New("gen: package name is empty")
	}
	data := fileData{Package: pkg}
	seen := make(map[string]bool)
	for _, d := range docs {
		sd, err := structFor(d)
		if err != nil {
			return nil, err
		}
		if seen[sd.Name] {
			return nil, fmt.Errorf("gen: duplicate struct name %q", sd.Name)
		}
		seen[sd.Name] = true
		data.Structs = append(data.Structs, sd)
	}
	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("gen: rendering: %w", err)
	}
	clean, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("gen: formatting output: %w", err)
	}
	return clean, nil
}

func structFor(d *jsl.Document) (structData, error) {
	if d.Name() == "" {
		return structData{}, errors.New("gen: document has an empty name")
	}
	sd := structData{Name: exportedName(d.Name()), Comment: docComment(d)}
	for _, item := range d.FieldItems() {
		if item.Name == "" {
			return structData{}, fmt.Errorf("gen: document %s has a field with an empty name", d.Name())
		}
		v := resolveDefault(item.Value)
		if v == nil {
			continue
		}
		f, ok := v.(jsl.Field)
		if !ok {
			return structData{}, fmt.Errorf("gen: field %q of %s: %v is not a field", item.Name, d.Name(), v)
		}
		typ, err := goType(f)
		if err != nil {
			return structData{}, fmt.Errorf("gen: field %q of %s: %w", item.Name, d.Name(), err)
		}
		required, err := f.IsRequired(jsl.DefaultRole)
		if err != nil {
			return structData{}, fmt.Errorf("gen: field %q of %s: %w", item.Name, d.Name(), err)
		}
		sd.Fields = append(sd.Fields, fieldData{
			Name: exportedName(item.Name),
			Type: typ,
			Tag:  fieldTag(item.Name, required),
		})
	}
	return sd, nil
}

// goType maps a field to the Go type used for its struct slot. Choice
// fields, raw refs and null collapse to any.
func goType(f jsl.Field) (string, error) {
	switch x := f.(type) {
	case *jsl.BooleanField:
		return "bool", nil
	case *jsl.StringField:
		return "string", nil
	case *jsl.NumberField:
		return "float64", nil
	case *jsl.IntField:
		return "int64", nil
	case *jsl.ArrayField:
		if inner, ok := resolveDefault(x.Items()).(jsl.Field); ok {
			t, err := goType(inner)
			if err != nil {
				return "", err
			}
			return "[]" + t, nil
		}
		return "[]any", nil
	case *jsl.DictField:
		return "map[string]any", nil
	case *jsl.DocumentField:
		target, err := x.Target()
		if err != nil {
			return "", err
		}
		return "*" + exportedName(target.Name()), nil
	default:
		return "any", nil
	}
}

func resolveDefault(v any) any {
	if vv, ok := v.(*jsl.Var); ok {
		return vv.Resolve(jsl.DefaultRole).Value
	}
	return v
}

func docComment(d *jsl.Document) string {
	var buf strings.Builder
	if title, ok := resolveDefault(d.Title()).(string); ok && title != "" {
		buf.WriteString(asComment(title))
	}
	if desc, ok := resolveDefault(d.Description()).(string); ok && desc != "" {
		buf.WriteString(asComment(desc))
	}
	return buf.String()
}

func fieldTag(name string, required bool) string {
	tag := name
	if !required {
		tag += ",omitempty"
	}
	return "`json:\"" + tag + "\"`"
}

var (
	wordBreaks = regexp.MustCompile(`[-._/\s]+`)
	acronyms   = regexp.MustCompile(`(Id|Url|Uri|Api|Http|Json|Uuid)$`)
)

// exportedName converts a document or field name to an exported Go
// identifier. Punctuation splits words, each word is capitalized and a
// trailing acronym is upcased, so task_id becomes TaskID.
func exportedName(name string) string {
	words := wordBreaks.Split(name, -1)
	out := words[:0]
	for _, w := range words {
		if w == "" {
			continue
		}
		r, n := utf8.DecodeRuneInString(w)
		w = string(unicode.ToUpper(r)) + w[n:]
		out = append(out, acronyms.ReplaceAllStringFunc(w, strings.ToUpper))
	}
	return strings.Join(out, "")
}

// asComment renders text as a comment block wrapped at 72 columns.
func asComment(text string) string {
	var buf strings.Builder
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			buf.WriteString("//\n")
			continue
		}
		line := "//"
		for _, w := range words {
			if len(line)+1+len(w) > 72 && line != "//" {
				buf.WriteString(line)
				buf.WriteByte('\n')
				line = "//"
			}
			line += " " + w
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.String()
}
