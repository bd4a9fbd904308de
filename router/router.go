// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package router maps a request's method and path to a Handler.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/z5labs/pageboy/message"
)

// Handler produces a Response for a Request. A returned error is
// reported to the client as a 500 Internal Server Error.
type Handler interface {
	Handle(context.Context, *message.Request) (*message.Response, error)
}

// HandlerFunc is a functional implementation of Handler.
type HandlerFunc func(context.Context, *message.Request) (*message.Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *message.Request) (*message.Response, error) {
	return f(ctx, req)
}

// Option configures a Router.
type Option func(*Router)

// NotFoundHandler registers the Handler used for any request which
// does not match a route. The default responds with 404 Not Found.
func NotFoundHandler(h Handler) Option {
	return func(r *Router) {
		r.notFound = h
	}
}

// DuplicateRouteError is returned when a method and path pattern
// are registered more than once.
type DuplicateRouteError struct {
	Method  message.Method
	Pattern string
}

// Error implements the [builtin.error] interface.
func (e DuplicateRouteError) Error() string {
	return fmt.Sprintf("route already registered: %s %s", e.Method, e.Pattern)
}

// InvalidPatternError is returned for an unusable path pattern.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

// Error implements the [builtin.error] interface.
func (e InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid route pattern %q: %s", e.Pattern, e.Reason)
}

// InvalidMethodError is returned when registering a route with a method
// the codec would never produce.
type InvalidMethodError struct {
	Method message.Method
}

// Error implements the [builtin.error] interface.
func (e InvalidMethodError) Error() string {
	return fmt.Sprintf("invalid route method: %q", string(e.Method))
}

type segment struct {
	literal string
	param   string
}

type paramRoute struct {
	pattern  string
	segments []segment
	literals int
	handler  Handler
}

func (pr paramRoute) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(pr.segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range pr.segments {
		if seg.param == "" {
			if parts[i] != seg.literal {
				return nil, false
			}
			continue
		}
		if parts[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string, len(pr.segments))
		}
		params[seg.param] = parts[i]
	}
	return params, true
}

// Router resolves requests to handlers. Routes must all be added before
// the Router is shared between goroutines.
type Router struct {
	exact    map[message.Method]map[string]Handler
	params   map[message.Method][]paramRoute
	notFound Handler
}

// New returns an empty Router.
func New(opts ...Option) *Router {
	r := &Router{
		exact:    make(map[message.Method]map[string]Handler),
		params:   make(map[message.Method][]paramRoute),
		notFound: HandlerFunc(notFound),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func notFound(_ context.Context, req *message.Request) (*message.Response, error) {
	return message.Text(message.StatusNotFound, message.StatusNotFound.Reason()), nil
}

// Add registers h for the given method and path pattern. The pattern is
// normalized the same way request paths are. A segment of the form
// {name} matches any non-empty segment and is made available through
// [message.Request.Param].
func (r *Router) Add(method message.Method, pattern string, h Handler) error {
	if !method.Valid() {
		return InvalidMethodError{Method: method}
	}
	if h == nil {
		return InvalidPatternError{Pattern: pattern, Reason: "nil handler"}
	}
	if !strings.HasPrefix(pattern, "/") {
		return InvalidPatternError{Pattern: pattern, Reason: "must begin with '/'"}
	}
	pattern = message.NormalizePath(pattern)

	segs, params, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	if params == 0 {
		routes, ok := r.exact[method]
		if !ok {
			routes = make(map[string]Handler)
			r.exact[method] = routes
		}
		if _, exists := routes[pattern]; exists {
			return DuplicateRouteError{Method: method, Pattern: pattern}
		}
		routes[pattern] = h
		return nil
	}

	for _, pr := range r.params[method] {
		if samePattern(pr.segments, segs) {
			return DuplicateRouteError{Method: method, Pattern: pattern}
		}
	}
	routes := append(r.params[method], paramRoute{
		pattern:  pattern,
		segments: segs,
		literals: len(segs) - params,
		handler:  h,
	})
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].literals > routes[j].literals
	})
	r.params[method] = routes
	return nil
}

// Resolve finds the Handler for the given method and path. Exact
// routes take precedence over parameterized ones and, among those, the
// route with the most literal segments wins.
func (r *Router) Resolve(method message.Method, path string) (Handler, map[string]string, bool) {
	path = message.NormalizePath(path)
	if h, ok := r.exact[method][path]; ok {
		return h, nil, true
	}

	routes := r.params[method]
	if len(routes) == 0 {
		return nil, nil, false
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, pr := range routes {
		params, ok := pr.match(parts)
		if ok {
			return pr.handler, params, true
		}
	}
	return nil, nil, false
}

// NotFound returns the Handler used when Resolve finds no match.
func (r *Router) NotFound() Handler {
	return r.notFound
}

// Handle implements the Handler interface by resolving req and invoking
// the matched Handler, or the NotFound handler.
func (r *Router) Handle(ctx context.Context, req *message.Request) (*message.Response, error) {
	h, params, ok := r.Resolve(req.Method, req.Path)
	if !ok {
		return r.notFound.Handle(ctx, req)
	}
	req.Params = params
	return h.Handle(ctx, req)
}

// Routes returns every registered "METHOD pattern" pair in sorted order.
func (r *Router) Routes() []string {
	var routes []string
	for method, paths := range r.exact {
		for p := range paths {
			routes = append(routes, string(method)+" "+p)
		}
	}
	for method, prs := range r.params {
		for _, pr := range prs {
			routes = append(routes, string(method)+" "+pr.pattern)
		}
	}
	sort.Strings(routes)
	return routes
}

func parsePattern(pattern string) ([]segment, int, error) {
	parts := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	segs := make([]segment, len(parts))
	seen := make(map[string]struct{})
	params := 0
	for i, part := range parts {
		if !strings.HasPrefix(part, "{") {
			if strings.ContainsAny(part, "{}") {
				return nil, 0, InvalidPatternError{Pattern: pattern, Reason: "braces must wrap a whole segment"}
			}
			segs[i] = segment{literal: part}
			continue
		}
		name, ok := strings.CutSuffix(part[1:], "}")
		if !ok || name == "" || strings.ContainsAny(name, "{}") {
			return nil, 0, InvalidPatternError{Pattern: pattern, Reason: "malformed parameter segment " + part}
		}
		if _, dup := seen[name]; dup {
			return nil, 0, InvalidPatternError{Pattern: pattern, Reason: "duplicate parameter " + name}
		}
		seen[name] = struct{}{}
		segs[i] = segment{param: name}
		params++
	}
	return segs, params, nil
}

// samePattern reports whether two patterns match exactly the same set
// of paths, regardless of parameter names.
func samePattern(a, b []segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if (a[i].param == "") != (b[i].param == "") {
			return false
		}
		if a[i].param == "" && a[i].literal != b[i].literal {
			return false
		}
	}
	return true
}
