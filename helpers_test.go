package jsl_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/aromanovich/jsl"
)

// normalize round-trips v through encoding/json so that ordered objects,
// maps and typed slices all compare as plain decoded values.
func normalize(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

// wantSchema compares an emitted fragment against a JSON literal,
// ignoring key order.
func wantSchema(t *testing.T, got any, want string) {
	t.Helper()
	var expected any
	if err := json.Unmarshal([]byte(want), &expected); err != nil {
		t.Fatalf("bad expected JSON: %v", err)
	}
	if diff := cmp.Diff(expected, normalize(t, got)); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}
}

// checkDraft4 validates an emitted schema against the draft-04
// meta-schema shipped with the jsonschema package.
func checkDraft4(t *testing.T, schema any) {
	t.Helper()
	raw, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	c := jsonschema.NewCompiler()
	meta, err := c.Compile(jsl.DraftURI)
	if err != nil {
		t.Fatalf("compile draft-04 meta-schema: %v", err)
	}
	if err := meta.Validate(instance); err != nil {
		t.Fatalf("schema does not satisfy the draft-04 meta-schema: %v", err)
	}
}

// mustSchemaOf emits a bare field's schema, failing the test on error.
func mustSchemaOf(t *testing.T, f jsl.Field, opts ...jsl.EmitOption) any {
	t.Helper()
	schema, err := jsl.SchemaOf(f, opts...)
	if err != nil {
		t.Fatalf("SchemaOf: %v", err)
	}
	return schema
}

// docSchema emits a document's schema, failing the test on error.
func docSchema(t *testing.T, d *jsl.Document, opts ...jsl.EmitOption) any {
	t.Helper()
	schema, err := d.Schema(opts...)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	return schema
}
