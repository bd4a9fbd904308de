// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/z5labs/pageboy/message"
)

// ParseResponse parses a complete response read off a connection
// which the server closed. If the response has no Content-Length the
// body runs to the end of buf.
func ParseResponse(buf []byte) (*message.Response, error) {
	end := bytes.Index(buf, headerEnd)
	if end < 0 {
		return nil, ErrIncomplete
	}

	lines := bytes.Split(buf[:end], crlf)
	proto, status, ok := strings.Cut(string(lines[0]), " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, malformed("malformed status line")
	}
	code, err := message.ParseStatus(status)
	if err != nil {
		return nil, malformed("malformed status line")
	}

	header, err := parseHeader(lines[1:])
	if err != nil {
		return nil, err
	}

	body := buf[end+len(headerEnd):]
	if v, ok := header.Lookup("Content-Length"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, malformed("invalid Content-Length %q", v)
		}
		if len(body) < n {
			return nil, ErrIncomplete
		}
		body = body[:n]
	}

	resp := &message.Response{
		Status:      code,
		ContentType: header.Get("Content-Type"),
		Content:     bytes.Clone(body),
		Header:      header,
	}
	header.Del("Content-Type")
	header.Del("Content-Length")
	return resp, nil
}
