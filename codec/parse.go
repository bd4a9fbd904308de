// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/z5labs/pageboy/message"
)

var crlf = []byte("\r\n")

var headerEnd = []byte("\r\n\r\n")

// ErrIncomplete is returned by Parse when more bytes must be read
// before a request can be produced.
var ErrIncomplete = errors.New("codec: incomplete request")

// ParseError describes a request which violates HTTP/1.x grammar or one
// of the configured Limits. Status is the response status the peer
// should receive.
type ParseError struct {
	Status message.Status
	Reason string
}

// Error implements the [builtin.error] interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("codec: %s: %s", e.Status, e.Reason)
}

func malformed(format string, args ...any) *ParseError {
	return &ParseError{
		Status: message.StatusBadRequest,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Limits bounds how much of an untrusted byte stream Parse will accept.
type Limits struct {
	// MaxHeader bounds the request line and header section, in bytes.
	MaxHeader int

	// MaxBody bounds the declared Content-Length.
	MaxBody int64

	// MaxURI bounds the length of the request target.
	MaxURI int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxHeader: 64 << 10,
		MaxBody:   1 << 20,
		MaxURI:    2000,
	}
}

// Parse consumes the bytes accumulated so far. It returns ErrIncomplete
// if the header section or the declared body is not fully buffered yet,
// a *ParseError if the request is malformed, or the request along with
// the number of bytes of buf it occupies. Bytes after the declared body
// are never consumed.
//
// A request without Content-Length has an empty body, whatever follows
// the header section is left unread.
func Parse(buf []byte, lim Limits) (*message.Request, int, error) {
	lineEnd := bytes.Index(buf, crlf)
	if lineEnd == 0 {
		return nil, 0, malformed("empty request line")
	}

	end := bytes.Index(buf, headerEnd)
	if end < 0 {
		if lineEnd > 0 {
			// fail fast on garbage instead of waiting for the header section
			_, _, _, _, err := parseRequestLine(buf[:lineEnd], lim)
			if err != nil {
				return nil, 0, err
			}
		}
		if lim.MaxHeader > 0 && len(buf) > lim.MaxHeader {
			return nil, 0, &ParseError{
				Status: message.StatusHeaderFieldsTooLarge,
				Reason: "header section exceeds limit",
			}
		}
		return nil, 0, ErrIncomplete
	}
	if lim.MaxHeader > 0 && end > lim.MaxHeader {
		return nil, 0, &ParseError{
			Status: message.StatusHeaderFieldsTooLarge,
			Reason: "header section exceeds limit",
		}
	}

	lines := bytes.Split(buf[:end], crlf)
	method, path, rawQuery, proto, err := parseRequestLine(lines[0], lim)
	if err != nil {
		return nil, 0, err
	}

	header, err := parseHeader(lines[1:])
	if err != nil {
		return nil, 0, err
	}

	contentLength, err := declaredLength(header, lim)
	if err != nil {
		return nil, 0, err
	}

	bodyStart := end + len(headerEnd)
	if contentLength > int64(math.MaxInt-bodyStart) {
		return nil, 0, &ParseError{
			Status: message.StatusPayloadTooLarge,
			Reason: "declared body is too large to buffer",
		}
	}
	n := bodyStart
	if contentLength > 0 {
		n += int(contentLength)
	}
	if len(buf) < n {
		return nil, 0, ErrIncomplete
	}

	query, _ := url.ParseQuery(rawQuery)
	req := &message.Request{
		Method:        method,
		Path:          path,
		RawQuery:      rawQuery,
		Query:         query,
		Proto:         proto,
		Header:        header,
		Body:          bytes.Clone(buf[bodyStart:n]),
		ContentLength: contentLength,
	}
	if req.Body == nil {
		req.Body = []byte{}
	}
	return req, n, nil
}

func parseRequestLine(line []byte, lim Limits) (method message.Method, path, rawQuery, proto string, err error) {
	parts := strings.Split(string(line), " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", "", malformed("malformed request line")
	}

	proto = parts[2]
	major, minor, ok := parseVersion(proto)
	if !ok {
		return "", "", "", "", malformed("malformed protocol version %q", proto)
	}
	if major != 1 || minor > 1 {
		return "", "", "", "", &ParseError{
			Status: message.StatusHTTPVersionNotSupported,
			Reason: fmt.Sprintf("unsupported protocol version %q", proto),
		}
	}

	method = message.Method(parts[0])
	if !isUpperToken(parts[0]) {
		return "", "", "", "", malformed("malformed method %q", parts[0])
	}
	if !method.Valid() {
		return "", "", "", "", &ParseError{
			Status: message.StatusMethodNotAllowed,
			Reason: fmt.Sprintf("unsupported method %q", parts[0]),
		}
	}

	target := parts[1]
	if lim.MaxURI > 0 && len(target) > lim.MaxURI {
		return "", "", "", "", &ParseError{
			Status: message.StatusURITooLong,
			Reason: "request target exceeds limit",
		}
	}
	path, rawQuery, err = splitTarget(method, target)
	if err != nil {
		return "", "", "", "", err
	}
	return method, path, rawQuery, proto, nil
}

func parseVersion(proto string) (major, minor int, ok bool) {
	v, found := strings.CutPrefix(proto, "HTTP/")
	if !found || len(v) != 3 || v[1] != '.' {
		return 0, 0, false
	}
	if !isDigit(v[0]) || !isDigit(v[2]) {
		return 0, 0, false
	}
	return int(v[0] - '0'), int(v[2] - '0'), true
}

func splitTarget(method message.Method, target string) (path, rawQuery string, err error) {
	switch {
	case target == "*":
		if method != message.MethodOptions {
			return "", "", malformed("asterisk target is only valid for OPTIONS")
		}
		return "*", "", nil
	case target[0] == '/':
		path, rawQuery, _ = strings.Cut(target, "?")
		return message.NormalizePath(path), rawQuery, nil
	case strings.Contains(target, "://"):
		u, err := url.ParseRequestURI(target)
		if err != nil {
			return "", "", malformed("malformed request target")
		}
		return message.NormalizePath(u.EscapedPath()), u.RawQuery, nil
	default:
		return "", "", malformed("malformed request target")
	}
}

func parseHeader(lines [][]byte) (message.Header, error) {
	h := make(message.Header, len(lines))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			return nil, malformed("obsolete header line folding")
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return nil, malformed("malformed header line")
		}
		name := string(line[:colon])
		if !isToken(name) {
			return nil, malformed("malformed header name %q", name)
		}
		value := strings.TrimSpace(string(line[colon+1:]))

		if message.CanonicalName(name) == "Content-Length" {
			old, exists := h.Lookup(name)
			if exists && old != value {
				return nil, malformed("conflicting Content-Length values")
			}
			h.Set(name, value)
			continue
		}
		h.Add(name, value)
	}
	return h, nil
}

func declaredLength(h message.Header, lim Limits) (int64, error) {
	v, ok := h.Lookup("Content-Length")
	if !ok {
		return -1, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 || !isDigits(v) {
		return 0, malformed("invalid Content-Length %q", v)
	}
	if lim.MaxBody > 0 && n > lim.MaxBody {
		return 0, &ParseError{
			Status: message.StatusPayloadTooLarge,
			Reason: "declared body exceeds limit",
		}
	}
	return n, nil
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}

func isUpperToken(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

// isToken reports whether s is a valid RFC 9110 token.
func isToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', isDigit(c):
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return len(s) > 0
}
