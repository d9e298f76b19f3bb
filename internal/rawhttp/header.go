package rawhttp

import "strings"

// Header is a single header field as it appeared on the wire.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Headers is an ordered list of header fields. Order and duplicates are
// preserved; name lookups are case-insensitive.
type Headers []Header

// Get returns the value of the first header matching name.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Values returns the values of all headers matching name, in order.
func (h Headers) Values(name string) []string {
	var values []string
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			values = append(values, hdr.Value)
		}
	}
	return values
}

// Has reports whether at least one header matches name.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Indexes returns the positions of all headers matching name.
func (h Headers) Indexes(name string) []int {
	var idx []int
	for i, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Clone returns a copy of the list that shares no backing array with h.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Del returns a copy of h without any header matching name.
func (h Headers) Del(name string) Headers {
	out := make(Headers, 0, len(h))
	for _, hdr := range h {
		if !strings.EqualFold(hdr.Name, name) {
			out = append(out, hdr)
		}
	}
	return out
}

// Set returns a copy of h where the first header matching name carries
// value and later duplicates are dropped. If no header matches, the field is
// appended.
func (h Headers) Set(name, value string) Headers {
	out := make(Headers, 0, len(h)+1)
	found := false
	for _, hdr := range h {
		if !strings.EqualFold(hdr.Name, name) {
			out = append(out, hdr)
			continue
		}
		if found {
			continue
		}
		found = true
		out = append(out, Header{Name: hdr.Name, Value: value})
	}
	if !found {
		out = append(out, Header{Name: name, Value: value})
	}
	return out
}

// SetFirst behaves like Set, but inserts a missing header at the front of the
// list instead of appending it.
func (h Headers) SetFirst(name, value string) Headers {
	if h.Has(name) {
		return h.Set(name, value)
	}
	out := make(Headers, 0, len(h)+1)
	out = append(out, Header{Name: name, Value: value})
	return append(out, h...)
}

// Equal reports whether both lists hold the same fields in the same order.
// Names are compared case-insensitively, values exactly.
func (h Headers) Equal(other Headers) bool {
	if len(h) != len(other) {
		return false
	}
	for i := range h {
		if !strings.EqualFold(h[i].Name, other[i].Name) || h[i].Value != other[i].Value {
			return false
		}
	}
	return true
}
