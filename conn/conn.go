// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package conn serves a single HTTP/1.x request over a Stream and then
// closes it.
package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/z5labs/pageboy/codec"
	"github.com/z5labs/pageboy/cors"
	"github.com/z5labs/pageboy/internal/try"
	"github.com/z5labs/pageboy/message"
	"github.com/z5labs/pageboy/pkg/noop"
	"github.com/z5labs/pageboy/pkg/slogfield"
	"github.com/z5labs/pageboy/router"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// State is a step in the lifecycle of a connection.
type State int

const (
	Accepting State = iota
	Reading
	Parsed
	Routed
	Handling
	Writing
	Closed
	Failed
)

var stateNames = [...]string{
	Accepting: "accepting",
	Reading:   "reading",
	Parsed:    "parsed",
	Routed:    "routed",
	Handling:  "handling",
	Writing:   "writing",
	Closed:    "closed",
	Failed:    "failed",
}

// String implements the [fmt.Stringer] interface.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Limits bounds the resources a single connection may consume.
type Limits struct {
	Codec codec.Limits

	// MaxRequest bounds the bytes buffered while waiting for a complete
	// request. Reaching it fails the connection with 413.
	MaxRequest int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		Codec:      codec.DefaultLimits(),
		MaxRequest: 1 << 20,
	}
}

// ReadError is returned when reading the request fails for any
// reason other than the peer closing the connection.
type ReadError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ReadError) Error() string {
	return fmt.Sprintf("failed to read request: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ReadError) Unwrap() error {
	return e.Cause
}

// WriteError is returned when writing the response fails.
type WriteError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e WriteError) Error() string {
	return fmt.Sprintf("failed to write response: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e WriteError) Unwrap() error {
	return e.Cause
}

// HandlerError is returned when a route handler fails or panics. The
// client receives a 500 Internal Server Error.
type HandlerError struct {
	Method message.Method
	Path   string
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e HandlerError) Error() string {
	return fmt.Sprintf("handler for %s %s failed: %s", e.Method, e.Path, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e HandlerError) Unwrap() error {
	return e.Cause
}

// ErrRequestTooLarge is reported when the buffered request reaches
// Limits.MaxRequest before it could be parsed.
var ErrRequestTooLarge = errors.New("request exceeds maximum buffer size")

// Handler serves connections. Its fields must not be modified while
// Serve is running.
type Handler struct {
	Router *router.Router
	Policy *cors.Policy
	Limits Limits
	Logger *slog.Logger
	Tracer trace.Tracer
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(noop.LogHandler{})
	}
	return h.Logger
}

func (h *Handler) tracer() trace.Tracer {
	if h.Tracer == nil {
		return otel.Tracer("github.com/z5labs/pageboy/conn")
	}
	return h.Tracer
}

func (h *Handler) limits() Limits {
	lim := h.Limits
	if lim.MaxRequest <= 0 {
		lim.MaxRequest = DefaultLimits().MaxRequest
	}
	if lim.Codec == (codec.Limits{}) {
		lim.Codec = codec.DefaultLimits()
	}
	return lim
}

type remoteAddrer interface {
	RemoteAddr() net.Addr
}

// Serve reads one request from s, responds to it and closes s. The
// returned State is either Closed or Failed. Failures are logged and
// also returned, Serve never panics because of a handler.
func (h *Handler) Serve(ctx context.Context, s Stream) (state State, err error) {
	defer try.Close(&err, s)

	connID := uuid.NewString()
	var remote string
	if ra, ok := s.(remoteAddrer); ok && ra.RemoteAddr() != nil {
		remote = ra.RemoteAddr().String()
	}

	spanCtx, span := h.tracer().Start(
		ctx,
		"conn.Serve",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("pageboy.conn.id", connID),
			attribute.String("net.peer.addr", remote),
		),
	)
	defer span.End()

	c := &connection{
		h:      h,
		s:      s,
		lim:    h.limits(),
		log:    h.logger().With(slogfield.ConnID(connID), slogfield.RemoteAddr(remote)),
		span:   span,
		state:  Accepting,
		remote: remote,
	}
	state, err = c.serve(spanCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("pageboy.conn.state", state.String()))
	return state, err
}

type connection struct {
	h      *Handler
	s      Stream
	lim    Limits
	log    *slog.Logger
	span   trace.Span
	state  State
	remote string

	written bool
}

func (c *connection) transition(ctx context.Context, to State) {
	c.log.DebugContext(ctx, "connection state changed", slogfield.String("from", c.state.String()), slogfield.String("to", to.String()))
	c.state = to
}

func (c *connection) serve(ctx context.Context) (State, error) {
	c.transition(ctx, Reading)
	req, resp, err := c.read(ctx)
	if err != nil && resp == nil {
		// nothing can be sent back
		c.transition(ctx, Closed)
		if errors.Is(err, io.EOF) {
			return Closed, nil
		}
		c.log.WarnContext(ctx, "abandoned connection", slogfield.Error(err))
		return Closed, err
	}
	if resp != nil {
		c.transition(ctx, Failed)
		c.log.InfoContext(ctx, "rejected malformed request", slogfield.Status(resp.Status.Code()), slogfield.Error(err))
		c.span.SetAttributes(attribute.Int("http.status_code", resp.Status.Code()))
		werr := c.write(ctx, resp)
		return Failed, errors.Join(err, werr)
	}

	c.transition(ctx, Parsed)
	req.RemoteAddr = c.remote
	c.span.SetAttributes(
		attribute.String("http.method", string(req.Method)),
		attribute.String("http.target", req.Path),
	)
	c.log.DebugContext(
		ctx,
		"parsed request",
		slogfield.Method(string(req.Method)),
		slogfield.Path(req.Path),
		slogfield.Headers(req.Header),
		slogfield.Int64("content_length", req.ContentLength),
	)

	start := time.Now()
	resp, herr := c.respond(ctx, req)
	c.span.SetAttributes(attribute.Int("http.status_code", resp.Status.Code()))

	werr := c.write(ctx, resp)
	c.log.InfoContext(
		ctx,
		"served request",
		slogfield.Method(string(req.Method)),
		slogfield.Path(req.Path),
		slogfield.Status(resp.Status.Code()),
		slogfield.Duration("duration", time.Since(start)),
	)
	if herr != nil || werr != nil {
		return Failed, errors.Join(herr, werr)
	}
	c.transition(ctx, Closed)
	return Closed, nil
}

// read accumulates bytes until a request can be parsed. A non-nil
// Response means the request was rejected and the Response should be
// written before closing.
func (c *connection) read(ctx context.Context) (*message.Request, *message.Response, error) {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		req, _, err := codec.Parse(buf, c.lim.Codec)
		if err == nil {
			return req, nil, nil
		}

		var perr *codec.ParseError
		if errors.As(err, &perr) {
			return nil, message.Text(perr.Status, perr.Status.Reason()), err
		}
		if len(buf) >= c.lim.MaxRequest {
			return nil, message.Text(message.StatusPayloadTooLarge, message.StatusPayloadTooLarge.Reason()), ErrRequestTooLarge
		}

		n := min(len(chunk), c.lim.MaxRequest-len(buf))
		k, rerr := c.s.Read(ctx, chunk[:n])
		buf = append(buf, chunk[:k]...)
		if rerr == nil || (k > 0 && errors.Is(rerr, io.EOF)) {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			if len(buf) == 0 {
				return nil, nil, io.EOF
			}
			return nil, message.Text(message.StatusBadRequest, "incomplete request"), ReadError{Cause: io.ErrUnexpectedEOF}
		}
		if ctx.Err() != nil || len(buf) == 0 {
			return nil, nil, ReadError{Cause: rerr}
		}
		return nil, message.Text(message.StatusBadRequest, message.StatusBadRequest.Reason()), ReadError{Cause: rerr}
	}
}

// respond always returns a Response, even when the handler failed.
func (c *connection) respond(ctx context.Context, req *message.Request) (*message.Response, error) {
	d := c.h.policy().Decide(req)
	if d.Preflight != nil {
		c.transition(ctx, Writing)
		return d.Preflight, nil
	}

	c.transition(ctx, Routed)
	c.transition(ctx, Handling)
	var resp *message.Response
	err := try.Call(func() (err error) {
		resp, err = c.h.route().Handle(ctx, req)
		return err
	})
	if err == nil && resp == nil {
		err = errors.New("handler returned a nil response")
	}
	if err != nil {
		c.transition(ctx, Failed)
		herr := HandlerError{Method: req.Method, Path: req.Path, Cause: err}
		c.log.ErrorContext(ctx, "handler failed", slogfield.Method(string(req.Method)), slogfield.Path(req.Path), slogfield.Error(herr))
		resp = message.Text(message.StatusInternalServerError, message.StatusInternalServerError.Reason())
		resp.Header = d.Header
		return resp, herr
	}

	c.transition(ctx, Writing)
	if resp.Status == 0 {
		resp.Status = message.StatusOK
	}
	if resp.Header == nil {
		resp.Header = make(message.Header, len(d.Header))
	}
	resp.Header.Merge(d.Header)
	return resp, nil
}

func (c *connection) write(ctx context.Context, resp *message.Response) error {
	if c.written {
		return nil
	}
	c.written = true

	b := codec.Serialize(resp)
	err := c.s.WriteAll(ctx, b)
	if err != nil {
		c.log.WarnContext(ctx, "failed to write response", slogfield.Error(err))
		return WriteError{Cause: err}
	}
	c.log.DebugContext(ctx, "wrote response", slogfield.Bytes("bytes_written", len(b)))
	return nil
}

func (h *Handler) policy() *cors.Policy {
	if h.Policy == nil {
		return cors.Default()
	}
	return h.Policy
}

func (h *Handler) route() router.Handler {
	if h.Router == nil {
		return router.New()
	}
	return h.Router
}
