package gen_test

import (
	"strings"
	"testing"

	"github.com/aromanovich/jsl"
	"github.com/aromanovich/jsl/gen"
)

// normalize collapses all whitespace runs so assertions survive gofmt
// column alignment.
func normalize(src []byte) string {
	return strings.Join(strings.Fields(string(src)), " ")
}

func TestFile_Structs(t *testing.T) {
	reg := jsl.NewRegistry()
	doc := jsl.NewDocument("User").
		Title("User").
		Field("login", jsl.String().Required().MinLength(3)).
		Field("task_id", jsl.Int()).
		Field("active", jsl.Boolean()).
		Field("score", jsl.Number()).
		Field("tags", jsl.Array(jsl.String())).
		Field("meta", jsl.Dict()).
		Field("choice", jsl.OneOf(jsl.String(), jsl.Null())).
		MustBuild(reg)

	out, err := gen.File("models", []*jsl.Document{doc})
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	got := normalize(out)

	if !strings.Contains(got, "// Code generated by jslc. DO NOT EDIT.") {
		t.Errorf("missing generated-code header in %q", got)
	}
	if !strings.Contains(got, "package models") {
		t.Errorf("missing package clause in %q", got)
	}
	want := "// User type User struct { " +
		"Login string `json:\"login\"` " +
		"TaskID int64 `json:\"task_id,omitempty\"` " +
		"Active bool `json:\"active,omitempty\"` " +
		"Score float64 `json:\"score,omitempty\"` " +
		"Tags []string `json:\"tags,omitempty\"` " +
		"Meta map[string]any `json:\"meta,omitempty\"` " +
		"Choice any `json:\"choice,omitempty\"` }"
	if !strings.Contains(got, want) {
		t.Errorf("struct mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestFile_DocumentRefs(t *testing.T) {
	reg := jsl.NewRegistry()
	file := jsl.NewDocument("File").
		InModule("fs").
		Field("name", jsl.String().Required()).
		Field("size", jsl.Int()).
		MustBuild(reg)
	dir := jsl.NewDocument("Directory").
		InModule("fs").
		Field("name", jsl.String().Required()).
		Field("entries", jsl.Array(jsl.DocField("File"))).
		Field("parent", jsl.DocField(jsl.Self)).
		MustBuild(reg)

	out, err := gen.File("fs", []*jsl.Document{file, dir})
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	got := normalize(out)

	if !strings.Contains(got, "type File struct { Name string `json:\"name\"` Size int64 `json:\"size,omitempty\"` }") {
		t.Errorf("File struct mismatch in %s", got)
	}
	want := "type Directory struct { " +
		"Name string `json:\"name\"` " +
		"Entries []*File `json:\"entries,omitempty\"` " +
		"Parent *Directory `json:\"parent,omitempty\"` }"
	if !strings.Contains(got, want) {
		t.Errorf("Directory struct mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestFile_VarSlots(t *testing.T) {
	reg := jsl.NewRegistry()
	doc := jsl.NewDocument("Entry").
		Field("note", jsl.NewVar().Default(jsl.String())).
		Field("secret", jsl.NewVar().When("admin", jsl.String())).
		MustBuild(reg)

	out, err := gen.File("models", []*jsl.Document{doc})
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	got := normalize(out)

	if !strings.Contains(got, "Note string `json:\"note,omitempty\"`") {
		t.Errorf("defaulted var slot missing in %s", got)
	}
	if strings.Contains(got, "Secret") {
		t.Errorf("role-only var slot should be omitted, got %s", got)
	}
}

func TestFile_InheritedFields(t *testing.T) {
	reg := jsl.NewRegistry()
	base := jsl.NewDocument("Base").
		Field("created_at", jsl.DateTime().Required()).
		MustBuild(reg)
	child := jsl.NewDocument("Child").
		Extends(base).
		Field("name", jsl.String()).
		MustBuild(reg)

	out, err := gen.File("models", []*jsl.Document{child})
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	got := normalize(out)

	want := "type Child struct { " +
		"CreatedAt string `json:\"created_at\"` " +
		"Name string `json:\"name,omitempty\"` }"
	if !strings.Contains(got, want) {
		t.Errorf("inherited fields mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestFile_Comments(t *testing.T) {
	reg := jsl.NewRegistry()
	doc := jsl.NewDocument("Task").
		Title("A task.").
		Description("Tasks belong to users.").
		Field("name", jsl.String()).
		MustBuild(reg)

	out, err := gen.File("models", []*jsl.Document{doc})
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	got := normalize(out)

	if !strings.Contains(got, "// A task. // Tasks belong to users. type Task struct") {
		t.Errorf("doc comment mismatch in %s", got)
	}
}

func TestFile_EmptyPackage(t *testing.T) {
	if _, err := gen.File("", nil); err == nil {
		t.Fatal("expected an error for an empty package name")
	}
}

func TestFile_DuplicateStructNames(t *testing.T) {
	reg := jsl.NewRegistry()
	a := jsl.NewDocument("User").InModule("a").MustBuild(reg)
	b := jsl.NewDocument("User").InModule("b").MustBuild(reg)

	_, err := gen.File("models", []*jsl.Document{a, b})
	if err == nil || !strings.Contains(err.Error(), "duplicate struct name") {
		t.Fatalf("err = %v, want duplicate struct name error", err)
	}
}

func TestFile_UnresolvableReference(t *testing.T) {
	reg := jsl.NewRegistry()
	doc := jsl.NewDocument("Holder").
		Field("ghost", jsl.DocField("Missing")).
		MustBuild(reg)

	_, err := gen.File("models", []*jsl.Document{doc})
	if err == nil || !strings.Contains(err.Error(), "is not registered") {
		t.Fatalf("err = %v, want unregistered reference error", err)
	}
}
