// Package jsl declares documents as ordered collections of typed fields
// and renders them to JSON Schema draft-04.
//
// It provides:
//
//   - Field constructors (String, Int, Array, Dict, OneOf, Not, DocField, ...)
//     with chainable attribute setters
//   - Documents built with DocumentBuilder: named object schemas with options,
//     inheritance (inline, all_of, any_of, one_of) and forward references
//     resolved through a Registry
//   - Roles: any attribute may be a *Var whose value depends on the role a
//     schema is emitted for, so one document can describe several schema
//     variants (request vs response, db vs api)
//   - Recursive documents, hoisted into "definitions" and referenced with
//     $ref; resolution scopes for documents that declare their own id
//   - GenerationError values carrying a step trail naming the exact path to
//     the node that failed
//
// Typical usage:
//
//	reg := jsl.NewRegistry()
//	user := jsl.NewDocument("User").
//	    Title("User").
//	    Field("login", jsl.String().Required()).
//	    MustBuild(reg)
//	schema, err := user.Schema()
//
// Boilerplate struct generation lives under gen, YAML-declared schema
// loading under manifest, and the command line interface under cmd/jslc.
package jsl
