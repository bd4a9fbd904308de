// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"strconv"
	"strings"

	"github.com/z5labs/pageboy/message"
)

// headers the codec always computes itself
var reserved = map[string]struct{}{
	"Content-Type":   {},
	"Content-Length": {},
	"Connection":     {},
}

// AppendResponse appends the wire form of resp to dst. Content-Length
// is always derived from len(resp.Content), any Content-Length the
// handler set is ignored. The status line keeps the space after the
// code even when the reason phrase is empty. Extra headers are written in sorted order
// and every response carries "Connection: close".
func AppendResponse(dst []byte, resp *message.Response) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(resp.Status), 10)
	dst = append(dst, ' ')
	dst = append(dst, resp.Status.Reason()...)
	dst = append(dst, crlf...)

	ct := resp.ContentType
	if ct == "" {
		ct = message.DefaultContentType
	}
	dst = appendHeader(dst, "Content-Type", ct)
	dst = appendHeader(dst, "Content-Length", strconv.Itoa(len(resp.Content)))
	for _, name := range resp.Header.Names() {
		if _, skip := reserved[message.CanonicalName(name)]; skip || !isToken(name) {
			continue
		}
		dst = appendHeader(dst, name, resp.Header[name])
	}
	dst = appendHeader(dst, "Connection", "close")
	dst = append(dst, crlf...)
	return append(dst, resp.Content...)
}

// Serialize returns the wire form of resp.
func Serialize(resp *message.Response) []byte {
	return AppendResponse(make([]byte, 0, 128+len(resp.Content)), resp)
}

// AppendRequest appends the wire form of req to dst. It is the inverse
// of Parse and is used by clients and test harnesses.
func AppendRequest(dst []byte, req *message.Request) []byte {
	proto := req.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	dst = append(dst, string(req.Method)...)
	dst = append(dst, ' ')
	dst = append(dst, req.Path...)
	if req.RawQuery != "" {
		dst = append(dst, '?')
		dst = append(dst, req.RawQuery...)
	}
	dst = append(dst, ' ')
	dst = append(dst, proto...)
	dst = append(dst, crlf...)

	for _, name := range req.Header.Names() {
		dst = appendHeader(dst, name, req.Header[name])
	}
	if _, ok := req.Header.Lookup("Content-Length"); !ok && len(req.Body) > 0 {
		dst = appendHeader(dst, "Content-Length", strconv.Itoa(len(req.Body)))
	}
	dst = append(dst, crlf...)
	return append(dst, req.Body...)
}

var headerValueReplacer = strings.NewReplacer("\r", " ", "\n", " ")

func appendHeader(dst []byte, name, value string) []byte {
	dst = append(dst, name...)
	dst = append(dst, ": "...)
	dst = append(dst, headerValueReplacer.Replace(value)...)
	return append(dst, crlf...)
}
