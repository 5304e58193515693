package jsl_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aromanovich/jsl"
)

func failure(t *testing.T, err error) *jsl.GenerationError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error")
	}
	var ge *jsl.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected a GenerationError, got %T: %v", err, err)
	}
	return ge
}

func wantFailure(t *testing.T, err error, message, steps string) {
	t.Helper()
	ge := failure(t, err)
	if ge.Message != message {
		t.Fatalf("message = %q, want %q", ge.Message, message)
	}
	if got := jsl.FormatSteps(ge.Steps); got != steps {
		t.Fatalf("steps = %q, want %q", got, steps)
	}
}

func TestGenerationError_Format(t *testing.T) {
	bare := &jsl.GenerationError{Message: "boom"}
	if bare.Error() != "boom" {
		t.Fatalf("Error() = %q, want the bare message", bare.Error())
	}

	doc := jsl.NewDocument("Users").MustBuild(nil)
	withSteps := &jsl.GenerationError{
		Message: "1 is not resolvable",
		Steps: []jsl.Step{
			jsl.DocumentStep{Document: doc},
			jsl.FieldStep{Field: jsl.Dict()},
			jsl.AttributeStep{Name: "properties"},
			jsl.ItemStep{Key: "users"},
			jsl.FieldStep{Field: jsl.Array(nil)},
			jsl.AttributeStep{Name: "items"},
			jsl.ItemStep{Key: 1},
		},
	}
	want := "1 is not resolvable\nSteps: Users -> DictField.properties['users'] -> ArrayField.items[1]"
	if withSteps.Error() != want {
		t.Fatalf("Error() = %q, want %q", withSteps.Error(), want)
	}
}

func TestGenerationError_Trail(t *testing.T) {
	reg := jsl.NewRegistry()
	user := jsl.NewDocument("User").
		Field("tags", jsl.Array([]any{42})).
		MustBuild(reg)
	users := jsl.NewDocument("Users").
		Field("users", jsl.Array(jsl.DocField(user))).
		MustBuild(reg)

	_, err := users.Schema()
	trail := "Users -> DictField.properties['users'] -> ArrayField.items" +
		" -> DocumentField -> User -> DictField.properties['tags'] -> ArrayField.items[0]"
	wantFailure(t, err, "42 is not resolvable", trail)
	if got := failure(t, err).Error(); got != "42 is not resolvable\nSteps: "+trail {
		t.Fatalf("Error() = %q", got)
	}
}

func TestGenerationError_Messages(t *testing.T) {
	cases := []struct {
		name    string
		field   jsl.Field
		message string
		steps   string
	}{
		{
			name:    "literal junk in a property set",
			field:   jsl.Dict().Prop("x", 42),
			message: "42 is not resolvable",
			steps:   "DictField.properties['x']",
		},
		{
			name:    "var resolving to a non-field property",
			field:   jsl.Dict().Prop("x", jsl.NewVar().Default(42)),
			message: "42 is not a field",
			steps:   "DictField.properties['x']",
		},
		{
			name:    "property set that is not a dict",
			field:   jsl.Dict().Properties(jsl.NewVar().Default("junk")),
			message: "junk is not a dict",
			steps:   "DictField.properties",
		},
		{
			name:    "additionalProperties junk",
			field:   jsl.Dict().AdditionalProperties(42),
			message: "42 is not a field or a bool",
			steps:   "DictField.additionalProperties",
		},
		{
			name:    "additionalItems junk",
			field:   jsl.Array(jsl.String()).AdditionalItems("x"),
			message: "x is not a field or a bool",
			steps:   "ArrayField.additionalItems",
		},
		{
			name:    "items junk",
			field:   jsl.Array(42),
			message: "42 is not a field or a list of fields",
			steps:   "ArrayField.items",
		},
		{
			name:    "tuple member junk",
			field:   jsl.Array([]any{jsl.String(), 42}),
			message: "42 is not resolvable",
			steps:   "ArrayField.items[1]",
		},
		{
			name:    "tuple with no members",
			field:   jsl.Array([]any{}),
			message: "items can not be empty",
			steps:   "ArrayField.items",
		},
		{
			name:    "tuple whose members all resolve absent",
			field:   jsl.Array([]any{jsl.NewVar().When("db", jsl.String())}),
			message: "items can not be empty",
			steps:   "ArrayField.items",
		},
		{
			name:    "branch list that is not a list",
			field:   jsl.OneOf(jsl.NewVar().Default(42)),
			message: "42 is not a list of fields",
			steps:   "OneOfField.fields",
		},
		{
			name:    "branch junk",
			field:   jsl.AnyOf(jsl.String(), 42),
			message: "42 is not resolvable",
			steps:   "AnyOfField.fields[1]",
		},
		{
			name:    "branch var resolving to a non-field",
			field:   jsl.AllOf(jsl.NewVar().Default(42), jsl.String()),
			message: "42 is not a field",
			steps:   "AllOfField.fields[0]",
		},
		{
			name:    "no branches",
			field:   jsl.AnyOf(),
			message: "fields can not be empty",
			steps:   "AnyOfField.fields",
		},
		{
			name:    "branches that all resolve absent",
			field:   jsl.OneOf(jsl.NewVar().When("db", jsl.String())),
			message: "fields can not be empty",
			steps:   "OneOfField.fields",
		},
		{
			name:    "not wrapping junk",
			field:   jsl.Not(42),
			message: "42 is not a field",
			steps:   "NotField.field",
		},
		{
			name:    "not wrapping a var resolving to a non-field",
			field:   jsl.Not(jsl.NewVar().Default(42)),
			message: "42 is not a field",
			steps:   "NotField.field",
		},
		{
			name:    "required flag that is not a bool",
			field:   jsl.Dict().Prop("s", jsl.String().RequiredVar(jsl.NewVar().Default("yes"))),
			message: "yes is not a bool",
			steps:   "DictField.properties['s']",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := jsl.SchemaOf(tc.field)
			wantFailure(t, err, tc.message, tc.steps)
		})
	}
}

func TestGenerationError_InvalidPatternKey(t *testing.T) {
	_, err := jsl.SchemaOf(jsl.Dict().PatternProp("(unclosed", jsl.String()))
	ge := failure(t, err)
	if !strings.HasPrefix(ge.Message, "Invalid regular expression: ") {
		t.Fatalf("message = %q", ge.Message)
	}
	// Key validation runs before any key is rendered, so the trail stops
	// at the attribute.
	if got := jsl.FormatSteps(ge.Steps); got != "DictField.patternProperties" {
		t.Fatalf("steps = %q", got)
	}
}

func TestGenerationError_NestedPatternKeyTrail(t *testing.T) {
	inner := jsl.Dict().PatternProp("(bad", jsl.String())
	outer := jsl.Dict().Prop("a", jsl.Array(inner))
	_, err := jsl.SchemaOf(outer)
	ge := failure(t, err)
	if !strings.HasPrefix(ge.Message, "Invalid regular expression: ") {
		t.Fatalf("message = %q", ge.Message)
	}
	want := "DictField.properties['a'] -> ArrayField.items -> DictField.patternProperties"
	if got := jsl.FormatSteps(ge.Steps); got != want {
		t.Fatalf("steps = %q, want %q", got, want)
	}
}

func TestGenerationError_DocumentPatternKey(t *testing.T) {
	d := jsl.NewDocument("Config").
		PatternProp("(bad", jsl.String()).
		MustBuild(nil)
	_, err := d.Schema()
	ge := failure(t, err)
	if !strings.HasPrefix(ge.Message, "Invalid regular expression: ") {
		t.Fatalf("message = %q", ge.Message)
	}
	if got := jsl.FormatSteps(ge.Steps); got != "Config -> DictField.patternProperties" {
		t.Fatalf("steps = %q", got)
	}
}
