package core

import "net/textproto"

// Headers is an ordered, case-insensitive name->value mapping. Lookups
// are case-insensitive; emission preserves insertion order. As in the
// source implementation this is simplified to single-value-per-name —
// multiple values for the same header name are not distinguished (see
// SPEC_FULL §9, carried from the original design note).
type Headers struct {
	keys   []string // canonical names, in insertion order
	values map[string]string
}

// NewHeaders returns an empty header set.
func NewHeaders() Headers {
	return Headers{values: make(map[string]string)}
}

func canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// Get returns the value for name, case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	if h.values == nil {
		return "", false
	}
	v, ok := h.values[canonical(name)]
	return v, ok
}

// Set stores value for name, overwriting any existing value but keeping
// its original position in emission order.
func (h *Headers) Set(name, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	key := canonical(name)
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Has reports whether name is present, case-insensitively.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Clone returns a deep copy so callers can mutate without affecting the
// original (Request/Response are immutable value types).
func (h Headers) Clone() Headers {
	out := Headers{
		keys:   append([]string(nil), h.keys...),
		values: make(map[string]string, len(h.values)),
	}
	for k, v := range h.values {
		out.values[k] = v
	}
	return out
}

// Range calls fn for every header in insertion order.
func (h Headers) Range(fn func(name, value string)) {
	for _, k := range h.keys {
		fn(k, h.values[k])
	}
}

// Len returns the number of distinct header names.
func (h Headers) Len() int {
	return len(h.keys)
}
