// Package jsonval provides an insertion-ordered JSON object value.
//
// encoding-agnostic schema fragments are built as *Object trees so that
// serialization reproduces declaration order: map iteration order must not
// leak into generated schemas.
package jsonval

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Object is a JSON object whose keys keep their insertion order.
// The zero value is not usable; call New.
type Object struct {
	keys []string
	vals map[string]any
}

// New returns an empty ordered object.
func New() *Object {
	return &Object{vals: make(map[string]any)}
}

// Pairs builds an object from alternating key/value arguments.
// It panics when given an odd number of arguments or a non-string key;
// it is meant for literals in code and tests.
func Pairs(kv ...any) *Object {
	if len(kv)%2 != 0 {
		panic("jsonval: Pairs requires an even number of arguments")
	}
	o := New()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("jsonval: Pairs key is not a string")
		}
		o.Set(k, kv[i+1])
	}
	return o
}

// Set stores v under key. Setting an existing key replaces the value but
// keeps the key's original position. It returns o for chaining.
func (o *Object) Set(key string, v any) *Object {
	if _, dup := o.vals[key]; !dup {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
	return o
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.vals[key]
	return ok
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Merge copies every key of src into o in src's order. Keys already present
// keep their position in o and are overwritten with src's value.
func (o *Object) Merge(src *Object) *Object {
	if src == nil {
		return o
	}
	for _, k := range src.keys {
		o.Set(k, src.vals[k])
	}
	return o
}

// MarshalJSON serializes the object with keys in insertion order.
// Values are encoded with goccy/go-json, so nested *Object values and
// anything implementing json.Marshaler round-trip as expected.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
