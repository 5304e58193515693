package jsl

// DefaultRole is the role used when none is requested explicitly and the
// role a resolution falls back to when propagation stops.
const DefaultRole = "default"

// Matcher decides whether a conditional value applies under a given role.
type Matcher interface {
	Match(role string) bool
}

// MatcherFunc adapts a predicate to the Matcher interface.
type MatcherFunc func(role string) bool

// Match implements Matcher.
func (f MatcherFunc) Match(role string) bool { return f(role) }

// Roles matches any of the given role names.
func Roles(names ...string) Matcher {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return MatcherFunc(func(role string) bool {
		_, ok := set[role]
		return ok
	})
}

// NotRole matches every role except name.
func NotRole(name string) Matcher {
	return MatcherFunc(func(role string) bool { return role != name })
}

// All matches every role.
func All() Matcher {
	return MatcherFunc(func(string) bool { return true })
}

// AllBut matches every role except the given ones.
func AllBut(names ...string) Matcher {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return MatcherFunc(func(role string) bool {
		_, ok := set[role]
		return !ok
	})
}

// A Var is a conditional value: an ordered list of (matcher, value) pairs
// consulted in declaration order, with an optional fallback. Anywhere a
// field or attribute is accepted, a *Var holding role-dependent variants
// of it is accepted too.
type Var struct {
	pairs     []varPair
	fallback  any
	propagate Matcher
	terminate Matcher
}

type varPair struct {
	matcher Matcher
	value   any
}

// NewVar returns an empty conditional value.
func NewVar() *Var { return &Var{} }

// When adds a variant picked when the role equals name.
func (v *Var) When(name string, value any) *Var {
	return v.WhenMatch(Roles(name), value)
}

// WhenMatch adds a variant picked when m matches the role.
func (v *Var) WhenMatch(m Matcher, value any) *Var {
	v.pairs = append(v.pairs, varPair{matcher: m, value: value})
	return v
}

// Default sets the value used when no variant matches.
func (v *Var) Default(value any) *Var {
	v.fallback = value
	return v
}

// Propagate limits which roles keep flowing into the picked value; roles
// the matcher rejects continue as DefaultRole. Mutually exclusive with
// Terminate.
func (v *Var) Propagate(m Matcher) *Var {
	if v.terminate != nil {
		panic("jsl: a Var cannot set both Propagate and Terminate")
	}
	v.propagate = m
	return v
}

// Terminate stops role propagation: roles the matcher accepts continue as
// DefaultRole. Mutually exclusive with Propagate.
func (v *Var) Terminate(m Matcher) *Var {
	if v.propagate != nil {
		panic("jsl: a Var cannot set both Propagate and Terminate")
	}
	v.terminate = m
	return v
}

// Resolution is the outcome of resolving a possibly conditional value:
// the picked value and the role that nested resolution continues with.
// A nil Value means no variant matched and no default was declared;
// emission treats that as "attribute absent".
type Resolution struct {
	Value any
	Role  string
}

// Resolve picks the variant for role. Matching always happens against the
// incoming role; only the returned Role is affected by Propagate/Terminate.
func (v *Var) Resolve(role string) Resolution {
	out := Resolution{Role: role}
	switch {
	case v.propagate != nil:
		if !v.propagate.Match(role) {
			out.Role = DefaultRole
		}
	case v.terminate != nil:
		if v.terminate.Match(role) {
			out.Role = DefaultRole
		}
	}
	for _, p := range v.pairs {
		if p.matcher.Match(role) {
			out.Value = p.value
			return out
		}
	}
	out.Value = v.fallback
	return out
}

// resolve is the single resolution chokepoint: Vars resolve under role,
// plain values pass through with the role unchanged.
func resolve(value any, role string) Resolution {
	if v, ok := value.(*Var); ok {
		return v.Resolve(role)
	}
	return Resolution{Value: value, Role: role}
}
