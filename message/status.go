// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package message

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is a numeric HTTP status code. Its String form is the
// "<code> <reason>" text used on the status line.
type Status int

const (
	StatusOK                      Status = 200
	StatusCreated                 Status = 201
	StatusAccepted                Status = 202
	StatusNoContent               Status = 204
	StatusMovedPermanently        Status = 301
	StatusFound                   Status = 302
	StatusNotModified             Status = 304
	StatusBadRequest              Status = 400
	StatusUnauthorized            Status = 401
	StatusForbidden               Status = 403
	StatusNotFound                Status = 404
	StatusMethodNotAllowed        Status = 405
	StatusRequestTimeout          Status = 408
	StatusConflict                Status = 409
	StatusPayloadTooLarge         Status = 413
	StatusURITooLong              Status = 414
	StatusUnsupportedMediaType    Status = 415
	StatusTooManyRequests         Status = 429
	StatusHeaderFieldsTooLarge    Status = 431
	StatusInternalServerError     Status = 500
	StatusNotImplemented          Status = 501
	StatusBadGateway              Status = 502
	StatusServiceUnavailable      Status = 503
	StatusGatewayTimeout          Status = 504
	StatusHTTPVersionNotSupported Status = 505
)

var reasons = map[Status]string{
	StatusOK:                      "OK",
	StatusCreated:                 "Created",
	StatusAccepted:                "Accepted",
	StatusNoContent:               "No Content",
	StatusMovedPermanently:        "Moved Permanently",
	StatusFound:                   "Found",
	StatusNotModified:             "Not Modified",
	StatusBadRequest:              "Bad Request",
	StatusUnauthorized:            "Unauthorized",
	StatusForbidden:               "Forbidden",
	StatusNotFound:                "Not Found",
	StatusMethodNotAllowed:        "Method Not Allowed",
	StatusRequestTimeout:          "Request Timeout",
	StatusConflict:                "Conflict",
	StatusPayloadTooLarge:         "Payload Too Large",
	StatusURITooLong:              "URI Too Long",
	StatusUnsupportedMediaType:    "Unsupported Media Type",
	StatusTooManyRequests:         "Too Many Requests",
	StatusHeaderFieldsTooLarge:    "Request Header Fields Too Large",
	StatusInternalServerError:     "Internal Server Error",
	StatusNotImplemented:          "Not Implemented",
	StatusBadGateway:              "Bad Gateway",
	StatusServiceUnavailable:      "Service Unavailable",
	StatusGatewayTimeout:          "Gateway Timeout",
	StatusHTTPVersionNotSupported: "HTTP Version Not Supported",
}

// Reason returns the reason phrase for s, or an empty string if s
// is not a known status.
func (s Status) Reason() string {
	return reasons[s]
}

// Code returns s as an int.
func (s Status) Code() int {
	return int(s)
}

// String implements the [fmt.Stringer] interface.
func (s Status) String() string {
	reason := s.Reason()
	if reason == "" {
		return strconv.Itoa(int(s))
	}
	return strconv.Itoa(int(s)) + " " + reason
}

// Class returns the hundreds digit of s, e.g. 4 for any 4xx.
func (s Status) Class() int {
	return int(s) / 100
}

// InvalidStatusError is returned by ParseStatus.
type InvalidStatusError struct {
	Text string
}

// Error implements the [builtin.error] interface.
func (e InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status: %q", e.Text)
}

// ParseStatus maps a "<code> <reason>" status text, or a bare code,
// back to a Status. The reason phrase is not validated.
func ParseStatus(text string) (Status, error) {
	code, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	if len(code) != 3 {
		return 0, InvalidStatusError{Text: text}
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 100 {
		return 0, InvalidStatusError{Text: text}
	}
	return Status(n), nil
}
