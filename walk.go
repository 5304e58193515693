package jsl

import "github.com/aromanovich/jsl/jsonval"

// childSlots lists the raw child-bearing attribute values of f. Primitive
// fields, document references and raw refs have none.
func childSlots(f Field) []any {
	switch x := f.(type) {
	case *ArrayField:
		return []any{x.items, x.additionalItems}
	case *DictField:
		return []any{x.properties, x.patternProperties, x.additionalProperties}
	case *OneOfField:
		return []any{x.fields}
	case *AnyOfField:
		return []any{x.fields}
	case *AllOfField:
		return []any{x.fields}
	case *NotField:
		return []any{x.field}
	default:
		return nil
	}
}

// walkAll visits every field reachable from v without resolving roles:
// every Var variant and default, every collection member. It does not
// descend into referenced documents.
func walkAll(v any, visit func(Field)) {
	switch x := v.(type) {
	case nil:
	case *Var:
		for _, p := range x.pairs {
			walkAll(p.value, visit)
		}
		walkAll(x.fallback, visit)
	case Field:
		visit(x)
		for _, slot := range childSlots(x) {
			walkAll(slot, visit)
		}
	case []any:
		for _, item := range x {
			walkAll(item, visit)
		}
	case map[string]any:
		for _, item := range x {
			walkAll(item, visit)
		}
	case *jsonval.Object:
		for _, k := range x.Keys() {
			item, _ := x.Get(k)
			walkAll(item, visit)
		}
	}
}

// walkResolved visits the fields reachable from v under role, resolving
// Vars the same way emission does. With throughDocs it descends into
// referenced documents, applying each target's role propagation rule and
// stopping at documents already in visited. Unresolvable slots are
// skipped; they are emission's problem.
func walkResolved(v any, role string, throughDocs bool, visited map[*Document]struct{}, visit func(Field)) error {
	r := resolve(v, role)
	if r.Value == nil {
		return nil
	}
	role = r.Role
	switch x := r.Value.(type) {
	case *DocumentField:
		visit(x)
		if !throughDocs {
			return nil
		}
		target, err := x.Target()
		if err != nil {
			return err
		}
		if _, seen := visited[target]; seen {
			return nil
		}
		visited[target] = struct{}{}
		return target.walkFieldsResolved(target.propagatedRole(role), throughDocs, visited, visit)
	case Field:
		visit(x)
		for _, slot := range childSlots(x) {
			if err := walkResolved(slot, role, throughDocs, visited, visit); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range x {
			if err := walkResolved(item, role, throughDocs, visited, visit); err != nil {
				return err
			}
		}
	case map[string]any:
		for _, item := range x {
			if err := walkResolved(item, role, throughDocs, visited, visit); err != nil {
				return err
			}
		}
	case *jsonval.Object:
		for _, k := range x.Keys() {
			item, _ := x.Get(k)
			if err := walkResolved(item, role, throughDocs, visited, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
