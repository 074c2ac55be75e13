package content

import "slices"

// PropertyMap is an ordered mapping from property name to typed value.
//
// Insertion order is preserved so that copies and report rendering are
// deterministic. The zero value is not usable; construct with
// NewPropertyMap.
type PropertyMap struct {
	keys   []string
	values map[string]Value
}

// NewPropertyMap creates an empty property map.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{values: make(map[string]Value)}
}

// Len returns the number of properties.
func (m *PropertyMap) Len() int {
	return len(m.keys)
}

// Has reports whether the key is present.
func (m *PropertyMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Get returns the value for key, or (nil, false) if absent.
func (m *PropertyMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores a value, appending the key to the order on first insert.
func (m *PropertyMap) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes a key. Removing an absent key is a no-op.
func (m *PropertyMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Keys returns the property names in insertion order.
// The returned slice is a copy; mutating it does not affect the map.
func (m *PropertyMap) Keys() []string {
	return slices.Clone(m.keys)
}

// Clone returns a deep-enough copy: keys and the value map are copied,
// values themselves are immutable by convention (lists append-by-copy).
func (m *PropertyMap) Clone() *PropertyMap {
	out := &PropertyMap{
		keys:   slices.Clone(m.keys),
		values: make(map[string]Value, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}
