package jsl_test

import (
	"testing"

	"github.com/aromanovich/jsl"
)

func TestMatchers(t *testing.T) {
	if !jsl.Roles("a", "b").Match("a") {
		t.Fatalf("Roles should match a listed name")
	}
	if jsl.Roles("a", "b").Match("c") {
		t.Fatalf("Roles should reject an unlisted name")
	}
	if !jsl.NotRole("a").Match("b") || jsl.NotRole("a").Match("a") {
		t.Fatalf("NotRole misbehaves")
	}
	if !jsl.All().Match("anything") {
		t.Fatalf("All should match every role")
	}
	if jsl.AllBut("a").Match("a") || !jsl.AllBut("a").Match("b") {
		t.Fatalf("AllBut misbehaves")
	}
}

func TestVar_ResolveOrderAndDefault(t *testing.T) {
	v := jsl.NewVar().
		When("db", 1).
		WhenMatch(jsl.Roles("db", "api"), 2).
		Default(3)

	if r := v.Resolve("db"); r.Value != 1 || r.Role != "db" {
		t.Fatalf("db resolved to %v under %q", r.Value, r.Role)
	}
	if r := v.Resolve("api"); r.Value != 2 {
		t.Fatalf("api resolved to %v, want 2", r.Value)
	}
	if r := v.Resolve("other"); r.Value != 3 {
		t.Fatalf("unmatched role should fall back to the default, got %v", r.Value)
	}

	noDefault := jsl.NewVar().When("db", 1)
	if r := noDefault.Resolve("api"); r.Value != nil {
		t.Fatalf("miss without default should resolve to nil, got %v", r.Value)
	}
}

func TestVar_PropagateAndTerminate(t *testing.T) {
	p := jsl.NewVar().Default("x").Propagate(jsl.Roles("db"))
	if r := p.Resolve("db"); r.Role != "db" {
		t.Fatalf("accepted role should propagate, got %q", r.Role)
	}
	if r := p.Resolve("api"); r.Role != jsl.DefaultRole {
		t.Fatalf("rejected role should continue as default, got %q", r.Role)
	}

	term := jsl.NewVar().Default("x").Terminate(jsl.Roles("db"))
	if r := term.Resolve("db"); r.Role != jsl.DefaultRole {
		t.Fatalf("terminated role should continue as default, got %q", r.Role)
	}
	if r := term.Resolve("api"); r.Role != "api" {
		t.Fatalf("unterminated role should propagate, got %q", r.Role)
	}
}

func TestVar_MatchesIncomingRole(t *testing.T) {
	// Variant matching always happens against the incoming role; only the
	// role handed to nested resolution is gated.
	v := jsl.NewVar().When("db", "matched").Terminate(jsl.Roles("db"))
	r := v.Resolve("db")
	if r.Value != "matched" {
		t.Fatalf("value should match the incoming role, got %v", r.Value)
	}
	if r.Role != jsl.DefaultRole {
		t.Fatalf("role should be terminated, got %q", r.Role)
	}
}

func TestVar_PropagateTerminateExclusive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("setting both Propagate and Terminate should panic")
		}
	}()
	jsl.NewVar().Propagate(jsl.All()).Terminate(jsl.Roles("x"))
}

func TestRequiredVar(t *testing.T) {
	text := jsl.String().RequiredVar(jsl.NewVar().When("response", true).Default(false))
	d := jsl.NewDocument("Message").
		Field("id", jsl.Int().Required()).
		Field("text", text).
		MustBuild(nil)

	wantSchema(t, docSchema(t, d), `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "object",
		"additionalProperties": false,
		"required": ["id"],
		"properties": {
			"id": {"type": "integer"},
			"text": {"type": "string"}
		}
	}`)
	wantSchema(t, docSchema(t, d, jsl.WithRole("response")), `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "object",
		"additionalProperties": false,
		"required": ["id", "text"],
		"properties": {
			"id": {"type": "integer"},
			"text": {"type": "string"}
		}
	}`)
}

func TestDocument_RoleVariants(t *testing.T) {
	reg := jsl.NewRegistry()
	user := jsl.NewDocument("User").
		ScopedField(jsl.Roles("response"), "id", jsl.Int().Required()).
		Field("login", jsl.String().Required()).
		MustBuild(reg)
	task := jsl.NewDocument("Task").
		Field("name", jsl.String().Required()).
		Field("author", jsl.DocField(user)).
		MustBuild(reg)

	wantSchema(t, docSchema(t, task), `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "object",
		"additionalProperties": false,
		"required": ["name"],
		"properties": {
			"name": {"type": "string"},
			"author": {
				"type": "object",
				"additionalProperties": false,
				"required": ["login"],
				"properties": {"login": {"type": "string"}}
			}
		}
	}`)

	wantSchema(t, docSchema(t, task, jsl.WithRole("response")), `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "object",
		"additionalProperties": false,
		"required": ["name"],
		"properties": {
			"name": {"type": "string"},
			"author": {
				"type": "object",
				"additionalProperties": false,
				"required": ["id", "login"],
				"properties": {
					"id": {"type": "integer"},
					"login": {"type": "string"}
				}
			}
		}
	}`)
}

func TestDocument_PropagateRolesGate(t *testing.T) {
	reg := jsl.NewRegistry()
	audit := jsl.NewDocument("Audit").
		PropagateRoles(jsl.Roles("admin")).
		ScopedField(jsl.Roles("admin"), "trace", jsl.String()).
		Field("at", jsl.DateTime()).
		MustBuild(reg)
	event := jsl.NewDocument("Event").
		Field("audit", jsl.DocField(audit)).
		MustBuild(reg)

	withTrace := `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"audit": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"trace": {"type": "string"},
					"at": {"type": "string", "format": "date-time"}
				}
			}
		}
	}`
	withoutTrace := `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"audit": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"at": {"type": "string", "format": "date-time"}
				}
			}
		}
	}`

	// The audit document propagates only the admin role across references.
	wantSchema(t, docSchema(t, event, jsl.WithRole("admin")), withTrace)
	wantSchema(t, docSchema(t, event, jsl.WithRole("support")), withoutTrace)

	// Emitting the document directly crosses no reference, so no gating.
	direct, err := audit.Schema(jsl.WithRole("admin"))
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	props := normalize(t, direct).(map[string]any)["properties"].(map[string]any)
	if _, ok := props["trace"]; !ok {
		t.Fatalf("direct emission should not gate the role")
	}
}

func TestVar_CollectionPropagateGating(t *testing.T) {
	branches := jsl.NewVar().
		WhenMatch(jsl.All(), []any{
			jsl.NewVar().When("a", jsl.String()),
			jsl.Int(),
		}).
		Propagate(jsl.Roles("b"))
	f := jsl.AnyOf(branches)

	// Role a picks the branch list but is not propagated into it, so the
	// string member resolves under the default role and drops out.
	wantSchema(t, mustSchemaOf(t, f, jsl.WithRole("a")), `{"anyOf": [{"type": "integer"}]}`)
}

func TestDictField_VarProperties(t *testing.T) {
	f := jsl.Dict().Properties(jsl.NewVar().
		When("db", map[string]any{"name": jsl.String()}).
		When("empty", map[string]any{}))

	wantSchema(t, mustSchemaOf(t, f, jsl.WithRole("db")), `{
		"type": "object",
		"properties": {"name": {"type": "string"}}
	}`)
	// A present but empty property set still emits.
	wantSchema(t, mustSchemaOf(t, f, jsl.WithRole("empty")), `{
		"type": "object",
		"properties": {}
	}`)
	// A miss with no default omits the keyword entirely.
	wantSchema(t, mustSchemaOf(t, f), `{"type": "object"}`)
}

func TestNotField_AbsentChild(t *testing.T) {
	f := jsl.Not(jsl.NewVar().When("db", jsl.String()))
	wantSchema(t, mustSchemaOf(t, f), `{"not": {}}`)
	wantSchema(t, mustSchemaOf(t, f, jsl.WithRole("db")), `{"not": {"type": "string"}}`)
}

func TestDocument_IsRecursiveByRole(t *testing.T) {
	reg := jsl.NewRegistry()
	node := jsl.NewDocument("Node").
		Field("value", jsl.String()).
		ScopedField(jsl.Roles("linked"), "next", jsl.DocField(jsl.Self)).
		MustBuild(reg)

	if rec, err := node.IsRecursive("linked"); err != nil || !rec {
		t.Fatalf("IsRecursive(linked) = %v, %v; want true", rec, err)
	}
	if rec, err := node.IsRecursive(jsl.DefaultRole); err != nil || rec {
		t.Fatalf("IsRecursive(default) = %v, %v; want false", rec, err)
	}

	wantSchema(t, docSchema(t, node), `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"type": "object",
		"additionalProperties": false,
		"properties": {"value": {"type": "string"}}
	}`)
	wantSchema(t, docSchema(t, node, jsl.WithRole("linked")), `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"definitions": {
			"Node": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"value": {"type": "string"},
					"next": {"$ref": "#/definitions/Node"}
				}
			}
		},
		"$ref": "#/definitions/Node"
	}`)
}
