package jsl

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps module-qualified document names to built documents; it is
// what string-based forward references resolve against. Create one per
// application, pass it to DocumentBuilder.Build, and treat it as
// read-only during schema emission.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{docs: make(map[string]*Document)}
}

func registryKey(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}

func (r *Registry) put(d *Document) error {
	key := registryKey(d.module, d.name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.docs[key]; dup {
		return fmt.Errorf("jsl: document %q is already registered", key)
	}
	r.docs[key] = d
	return nil
}

// Put registers an already built document under its qualified name.
// Build does this automatically; Put is for adding a document to further
// registries.
func (r *Registry) Put(d *Document) error {
	return r.put(d)
}

// Get returns the document registered under the given module-qualified
// name.
func (r *Registry) Get(name string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[name]
	if !ok {
		return nil, fmt.Errorf("jsl: document %q is not registered", name)
	}
	return d, nil
}

// lookup resolves name the way document references do: as given first,
// then qualified with the referencing document's module.
func (r *Registry) lookup(name, ownerModule string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.docs[name]; ok {
		return d, nil
	}
	if ownerModule != "" {
		if d, ok := r.docs[registryKey(ownerModule, name)]; ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("jsl: document %q is not registered", name)
}

// Remove deletes the document registered under name and reports whether
// it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[name]
	delete(r.docs, name)
	return ok
}

// Clear removes every registered document.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]*Document)
}

// Documents returns the registered documents sorted by their qualified
// names.
func (r *Registry) Documents() []*Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.docs))
	for k := range r.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Document, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.docs[k])
	}
	return out
}
