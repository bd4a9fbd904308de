// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slogfield standardizes the attribute keys used across
// pageboy's structured logs.
package slogfield

import (
	"log/slog"
	"strings"
	"time"
)

// Any returns an slog.Attr for the supplied value.
func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Bool returns an slog.Attr for a bool.
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Duration returns an slog.Attr for a time.Duration.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// String returns an slog.Attr for a string.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Strings returns an slog.Attr for a slice of strings.
func Strings(key string, values []string) slog.Attr {
	return slog.Any(key, values)
}

// Int returns an slog.Attr for a int.
func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Int64 returns an slog.Attr for a int64.
func Int64(key string, n int64) slog.Attr {
	return slog.Int64(key, n)
}

// ConnID identifies every log emitted while serving a single connection.
func ConnID(id string) slog.Attr {
	return slog.String("conn_id", id)
}

// RemoteAddr is the peer address of a connection.
func RemoteAddr(addr string) slog.Attr {
	return slog.String("remote_addr", addr)
}

// Method is the HTTP method of a request.
func Method(m string) slog.Attr {
	return slog.String("http_method", m)
}

// Path is the normalized path of a request.
func Path(p string) slog.Attr {
	return slog.String("http_path", p)
}

// Status is the numeric status code of a response.
func Status(code int) slog.Attr {
	return slog.Int("http_status", code)
}

// Bytes is a count of bytes read or written.
func Bytes(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Headers groups header values under "headers" with lower case keys, e.g.
// "Authorization" becomes "authorization", so they can be masked by key.
func Headers[M ~map[string]string](h M) slog.Attr {
	attrs := make([]any, 0, len(h))
	for k, v := range h {
		attrs = append(attrs, slog.String(strings.ToLower(k), v))
	}
	return slog.Group("headers", attrs...)
}
