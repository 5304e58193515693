package jsl

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// A Step records one level of the schema generation call stack. The trail
// on a GenerationError reads from the outermost document down to the node
// that failed, e.g.
//
//	Users -> DictField.properties['users'] -> ArrayField.items[1]
type Step interface {
	token() string
	// inline steps attach to the previous token without an arrow.
	inline() bool
}

// DocumentStep marks entry into a document's schema generation.
type DocumentStep struct {
	Document *Document
	Role     string
}

func (s DocumentStep) token() string { return s.Document.Name() }
func (s DocumentStep) inline() bool  { return false }

// FieldStep marks entry into a field's schema generation.
type FieldStep struct {
	Field Field
	Role  string
}

func (s FieldStep) token() string { return fieldKindName(s.Field) }
func (s FieldStep) inline() bool  { return false }

// AttributeStep marks processing of one attribute of a field, such as
// "properties" or "items".
type AttributeStep struct {
	Name string
	Role string
}

func (s AttributeStep) token() string { return "." + s.Name }
func (s AttributeStep) inline() bool  { return true }

// ItemStep marks processing of one element of a collection attribute;
// Key is a property name or a list index.
type ItemStep struct {
	Key  any
	Role string
}

func (s ItemStep) token() string {
	if k, ok := s.Key.(string); ok {
		return "['" + k + "']"
	}
	return fmt.Sprintf("[%v]", s.Key)
}
func (s ItemStep) inline() bool { return true }

// GenerationError reports a failure while emitting a schema. Steps is the
// path from the outermost document to the offending node; it is empty for
// failures on a bare field used on its own.
type GenerationError struct {
	Message string
	Steps   []Step
}

func (e *GenerationError) Error() string {
	if len(e.Steps) == 0 {
		return e.Message
	}
	return e.Message + "\nSteps: " + FormatSteps(e.Steps)
}

// FormatSteps renders a step trail the way GenerationError.Error does.
func FormatSteps(steps []Step) string {
	var b strings.Builder
	for i, s := range steps {
		if i > 0 && !s.inline() {
			b.WriteString(" -> ")
		}
		b.WriteString(s.token())
	}
	return b.String()
}

func generationErrorf(format string, args ...any) *GenerationError {
	return &GenerationError{Message: fmt.Sprintf(format, args...)}
}

// prependStep pushes s onto err's trail, converting foreign errors into
// GenerationErrors first. Every emitter calls it once per level on unwind,
// which is what makes trails read root to leaf.
func prependStep(err error, s Step) error {
	ge := asGenerationError(err)
	ge.Steps = append([]Step{s}, ge.Steps...)
	return ge
}

func asGenerationError(err error) *GenerationError {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge
	}
	return &GenerationError{Message: err.Error()}
}

// fieldKindName names a field for step trails: DictField, ArrayField, ...
func fieldKindName(f Field) string {
	t := reflect.TypeOf(f)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "Field"
	}
	return t.Name()
}
