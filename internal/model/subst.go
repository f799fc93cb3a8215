package model

// SubstitutionMap is the two-layer key/value dictionary used to expand
// "{key}" tokens (spec §3, Design Notes "Sealed CLI keys").
//
// The sealed layer holds command-line (-s) and dictionary-file (-i)
// entries; it is fixed once phase P0 completes. The growable layer holds
// <dict> elements encountered while walking the document. Lookup probes
// growable first, then sealed. Inserts only ever land in the growable
// layer, and an insert whose key already exists in the sealed layer is
// silently dropped: the document can never shadow a command-line value.
type SubstitutionMap struct {
	sealed   map[string]string
	growable map[string]string
}

func NewSubstitutionMap() *SubstitutionMap {
	return &SubstitutionMap{
		sealed:   make(map[string]string),
		growable: make(map[string]string),
	}
}

// Seal records a value in the sealed layer. Only phase P0 should call
// this; it exists on the exported type instead of being an unexported
// side effect of construction because P0 seeds from several sources
// (CLI -s pairs, -i dictionary files, then the synthesized {config}).
func (m *SubstitutionMap) Seal(key, value string) {
	m.sealed[key] = value
}

// Set inserts into the growable layer. It is a no-op if key is already
// bound in either layer: sealed keys can never be shadowed, and a
// growable key keeps whichever value was seen first in document order,
// the rule for <dict> elements folded in during include splicing.
func (m *SubstitutionMap) Set(key, value string) {
	if _, ok := m.sealed[key]; ok {
		return
	}
	if _, ok := m.growable[key]; ok {
		return
	}
	m.growable[key] = value
}

// SetForce overwrites the growable layer unconditionally, bypassing the
// first-wins rule. Used only by the fixed-point reconciliation pass,
// which needs to update a key's own value once it resolves further, not
// to add a competing definition.
func (m *SubstitutionMap) SetForce(key, value string) {
	if _, ok := m.sealed[key]; ok {
		return
	}
	m.growable[key] = value
}

// Has reports whether key is bound in either layer.
func (m *SubstitutionMap) Has(key string) bool {
	if _, ok := m.growable[key]; ok {
		return true
	}
	_, ok := m.sealed[key]
	return ok
}

func (m *SubstitutionMap) Get(key string) (string, bool) {
	if v, ok := m.growable[key]; ok {
		return v, true
	}
	v, ok := m.sealed[key]
	return v, ok
}

// IsSealed reports whether key belongs to the sealed (immutable) layer.
func (m *SubstitutionMap) IsSealed(key string) bool {
	_, ok := m.sealed[key]
	return ok
}

// Keys returns every bound key across both layers, sealed first.
func (m *SubstitutionMap) Keys() []string {
	keys := make([]string, 0, len(m.sealed)+len(m.growable))
	for k := range m.sealed {
		keys = append(keys, k)
	}
	for k := range m.growable {
		keys = append(keys, k)
	}
	return keys
}

// GrowableKeys returns only the keys added via Set, in no particular
// order; used by the fixed-point dict reconciliation pass.
func (m *SubstitutionMap) GrowableKeys() []string {
	keys := make([]string, 0, len(m.growable))
	for k := range m.growable {
		keys = append(keys, k)
	}
	return keys
}
