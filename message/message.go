// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package message defines the request and response values exchanged
// between the codec, the router and user supplied handlers.
package message

import (
	"net/url"
	"strings"
)

// Request is a fully buffered HTTP/1.x request. Handlers must treat
// it as read-only.
type Request struct {
	Method   Method
	Path     string
	RawQuery string
	Query    url.Values
	Proto    string
	Header   Header
	Body     []byte

	// ContentLength is -1 if the request did not declare a Content-Length.
	ContentLength int64

	// Params holds the values captured by {name} route segments.
	Params map[string]string

	RemoteAddr string
}

// Origin returns the value of the Origin header, if any.
func (r *Request) Origin() string {
	return r.Header.Get("Origin")
}

// Param returns the path parameter captured for name.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// Response is what a handler produces.
type Response struct {
	Status      Status
	ContentType string
	Content     []byte
	Header      Header
}

// DefaultContentType is used when a Response leaves ContentType empty.
const DefaultContentType = "text/plain; charset=utf-8"

// Text returns a Response with a plain text body.
func Text(status Status, s string) *Response {
	return &Response{
		Status:      status,
		ContentType: DefaultContentType,
		Content:     []byte(s),
	}
}

// Bytes returns a Response with the given content type and body.
func Bytes(status Status, contentType string, b []byte) *Response {
	return &Response{
		Status:      status,
		ContentType: contentType,
		Content:     b,
	}
}

// Empty returns a Response without a body.
func Empty(status Status) *Response {
	return &Response{Status: status}
}

// SetHeader sets a header on the response, allocating the Header if needed.
func (r *Response) SetHeader(name, value string) {
	if r.Header == nil {
		r.Header = make(Header)
	}
	r.Header.Set(name, value)
}

// NormalizePath returns p with exactly one leading slash and no
// repeated slashes. Dot segments are left untouched, path sanitization
// is the responsibility of whoever touches the filesystem.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	var sb strings.Builder
	sb.Grow(len(p) + 1)
	if p[0] != '/' {
		sb.WriteByte('/')
	}
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
