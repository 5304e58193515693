package jsl

import (
	"net/url"
	"strings"

	"github.com/aromanovich/jsl/jsonval"
)

// ResolutionScope tracks the URI context a schema fragment is emitted in,
// mirroring JSON Schema's id-nesting semantics: base is the root document
// URI, current the URI of the node being emitted, output the prefix
// stripped from emitted ids. Scopes are immutable values; Alter returns a
// derived scope.
type ResolutionScope struct {
	base    string
	current string
	output  string
}

// NewResolutionScope builds a scope from the three URI components.
// Fragments are stripped from each.
func NewResolutionScope(base, current, output string) ResolutionScope {
	return ResolutionScope{
		base:    defrag(base),
		current: defrag(current),
		output:  defrag(output),
	}
}

// Base returns the root document URI.
func (s ResolutionScope) Base() string { return s.base }

// Current returns the URI of the node being emitted.
func (s ResolutionScope) Current() string { return s.current }

// Output returns the prefix stripped from emitted ids.
func (s ResolutionScope) Output() string { return s.output }

// WithOutput returns a copy of the scope with the output component
// replaced. Recursive documents reset output to base so that definitions
// hoisted to the schema root emit ids relative to it.
func (s ResolutionScope) WithOutput(output string) ResolutionScope {
	s.output = defrag(output)
	return s
}

// Alter resolves localID against the scope per RFC 3986 and returns the id
// to emit for the declaring node together with the scope its children
// render in. The emitted id has the output prefix stripped, so ids nested
// under the position being emitted come out relative.
func (s ResolutionScope) Alter(localID string) (string, ResolutionScope) {
	context := s.current
	if context == "" {
		context = s.base
	}
	joined := urljoin(context, localID)
	id := strings.TrimPrefix(joined, s.output)
	return id, NewResolutionScope(s.base, joined, joined)
}

// CreateRef returns a {"$ref": ...} fragment pointing at definitionID in
// the root document's definitions. The pointer carries the base URI only
// when the scope has moved away from it, which is what keeps refs emitted
// inside re-anchored subschemas resolvable.
func (s ResolutionScope) CreateRef(definitionID string) *jsonval.Object {
	ref := "#/definitions/" + definitionID
	if s.current != "" && s.base != s.current {
		ref = s.base + ref
	}
	return jsonval.New().Set("$ref", ref)
}

func defrag(uri string) string {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		return uri[:i]
	}
	return uri
}

// urljoin resolves ref against base the way RFC 3986 resolution works,
// falling back to the reference itself when either side does not parse.
func urljoin(base, ref string) string {
	if base == "" {
		return ref
	}
	if ref == "" {
		return base
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}
