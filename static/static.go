// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package static serves files from a set of base directories. Every
// requested path goes through SecurePath before the filesystem is touched.
package static

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/z5labs/pageboy/message"
	"github.com/z5labs/pageboy/router"
)

// UnsafePathError is returned by SecurePath for any request path which
// could resolve outside of its base directory.
type UnsafePathError struct {
	Path   string
	Reason string
}

// Error implements the [builtin.error] interface.
func (e UnsafePathError) Error() string {
	return fmt.Sprintf("unsafe path %q: %s", e.Path, e.Reason)
}

// SecurePath maps requestPath onto a file beneath base. It rejects NUL
// bytes, backslashes, ".." segments, whether literal or percent encoded,
// and any symlink which resolves outside of base. The returned path has
// every symlink resolved. If the file does not exist the error wraps
// [fs.ErrNotExist].
func SecurePath(base, requestPath string) (string, error) {
	if strings.ContainsRune(requestPath, 0) {
		return "", UnsafePathError{Path: requestPath, Reason: "contains NUL byte"}
	}
	if strings.ContainsRune(requestPath, '\\') {
		return "", UnsafePathError{Path: requestPath, Reason: "contains backslash"}
	}

	decoded, err := url.PathUnescape(requestPath)
	if err != nil {
		return "", UnsafePathError{Path: requestPath, Reason: "invalid percent encoding"}
	}
	// decoding must not produce anything the raw checks would have rejected
	if strings.ContainsRune(decoded, 0) || strings.ContainsRune(decoded, '\\') {
		return "", UnsafePathError{Path: requestPath, Reason: "encoded separator or NUL byte"}
	}
	for _, seg := range strings.Split(decoded, "/") {
		if seg == ".." {
			return "", UnsafePathError{Path: requestPath, Reason: "parent directory segment"}
		}
	}

	root, err := resolveBase(base)
	if err != nil {
		return "", err
	}

	rel := strings.TrimLeft(decoded, "/")
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !within(root, target) {
		return "", UnsafePathError{Path: requestPath, Reason: "escapes base directory"}
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", err
	}
	if !within(root, resolved) {
		return "", UnsafePathError{Path: requestPath, Reason: "symlink escapes base directory"}
	}
	return resolved, nil
}

func resolveBase(base string) (string, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Canonical returns the absolute, symlink free form of base. If base
// cannot be resolved it is returned as is.
func Canonical(base string) string {
	root, err := resolveBase(base)
	if err != nil {
		return base
	}
	return root
}

// IndexFile is served when a request resolves to a directory.
const IndexFile = "index.html"

// Handler returns a router.Handler which serves GET requests from the
// first base containing the requested file. Requests which do not map
// onto a file respond with 404 Not Found and unsafe paths respond with
// 403 Forbidden.
func Handler(bases ...string) router.Handler {
	return router.HandlerFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
		if req.Method != message.MethodGet && req.Method != message.MethodHead {
			return message.Text(message.StatusNotFound, message.StatusNotFound.Reason()), nil
		}

		for _, base := range bases {
			resp, err := serveFile(base, req.Path)
			if err == nil {
				return resp, nil
			}

			var uerr UnsafePathError
			if errors.As(err, &uerr) {
				return message.Text(message.StatusForbidden, message.StatusForbidden.Reason()), nil
			}
		}
		return message.Text(message.StatusNotFound, message.StatusNotFound.Reason()), nil
	})
}

func serveFile(base, requestPath string) (*message.Response, error) {
	p, err := SecurePath(base, requestPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		p, err = SecurePath(base, strings.TrimSuffix(requestPath, "/")+"/"+IndexFile)
		if err != nil {
			return nil, err
		}
		info, err = os.Stat(p)
		if err != nil {
			return nil, err
		}
	}
	if !info.Mode().IsRegular() {
		return nil, fs.ErrNotExist
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return message.Bytes(message.StatusOK, ContentType(p), b), nil
}

// ContentType guesses the content type of a file from its extension.
func ContentType(name string) string {
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
