// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package message

import (
	"net/textproto"
	"sort"
)

// Header maps canonicalized header names to their value. Names are
// case-insensitive, Header canonicalizes them on every access.
type Header map[string]string

// CanonicalName returns the canonical form of a header name,
// e.g. "content-length" becomes "Content-Length".
func CanonicalName(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// Get returns the value associated with name.
func (h Header) Get(name string) string {
	if h == nil {
		return ""
	}
	return h[CanonicalName(name)]
}

// Lookup is like Get but also reports if name was present.
func (h Header) Lookup(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h[CanonicalName(name)]
	return v, ok
}

// Set replaces any existing value for name.
func (h Header) Set(name, value string) {
	h[CanonicalName(name)] = value
}

// Add appends value to an existing value for name using the
// comma separated list form from RFC 9110.
func (h Header) Add(name, value string) {
	k := CanonicalName(name)
	old, ok := h[k]
	if !ok {
		h[k] = value
		return
	}
	h[k] = old + ", " + value
}

// Del removes name.
func (h Header) Del(name string) {
	delete(h, CanonicalName(name))
}

// Merge copies every entry of other into h which is not already set in h.
func (h Header) Merge(other Header) {
	for k, v := range other {
		k = CanonicalName(k)
		if _, exists := h[k]; exists {
			continue
		}
		h[k] = v
	}
}

// Clone returns a copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	c := make(Header, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}

// Names returns the header names in sorted order.
func (h Header) Names() []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
