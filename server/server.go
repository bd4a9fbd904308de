// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package server binds a TCP listener and serves every accepted connection
// through a conn.Handler, scheduled by an executor.Executor.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/z5labs/pageboy/conn"
	"github.com/z5labs/pageboy/cors"
	"github.com/z5labs/pageboy/executor"
	"github.com/z5labs/pageboy/message"
	"github.com/z5labs/pageboy/pkg/health"
	"github.com/z5labs/pageboy/pkg/noop"
	"github.com/z5labs/pageboy/pkg/slogfield"
	"github.com/z5labs/pageboy/router"
	"github.com/z5labs/pageboy/static"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrRunning is returned by any mutation of a Server after Run has been
// called.
var ErrRunning = errors.New("server: already running")

// BindError is returned by New when the address could not be bound.
type BindError struct {
	Addr  string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %s", e.Addr, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e *BindError) Unwrap() error {
	return e.Cause
}

// Option configures a Server.
type Option func(*Server)

// Executor sets the scheduling model connections are served under.
// The default is executor.Threaded.
func Executor(e executor.Executor) Option {
	return func(s *Server) {
		s.exec = e
	}
}

// LogHandler sets the slog.Handler used by the Server and every
// connection it serves.
func LogHandler(h slog.Handler) Option {
	return func(s *Server) {
		s.log = slog.New(h)
	}
}

// Limits bounds the resources each connection may consume.
func Limits(l conn.Limits) Option {
	return func(s *Server) {
		s.limits = l
	}
}

// CORS sets the initial CORS policy. The Server keeps its own copy.
func CORS(p *cors.Policy) Option {
	return func(s *Server) {
		s.policy = p.Clone()
	}
}

// HealthEndpoints registers the startup, liveness and readiness probes
// on the given paths.
func HealthEndpoints(e health.Endpoints) Option {
	return func(s *Server) {
		s.endpoints = &e
	}
}

// DrainTimeout bounds how long open connections may keep reading once
// shutdown begins. A connection still waiting on its request when d
// elapses fails its read and is closed. The default of 0 waits for
// every client, including idle ones, to finish or disconnect.
func DrainTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.drain = d
	}
}

// Tracer sets the tracer connection spans are started with.
func Tracer(t trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// Server owns a listener along with the Router and CORS policy every
// connection is served with. Neither may change once Run has started.
type Server struct {
	ls        net.Listener
	exec      executor.Executor
	log       *slog.Logger
	tracer    trace.Tracer
	limits    conn.Limits
	endpoints *health.Endpoints
	metrics   *health.Metrics
	drain     time.Duration

	connMu   sync.Mutex
	draining bool
	conns    map[net.Conn]struct{}

	mu      sync.Mutex
	running bool
	router  *router.Router
	policy  *cors.Policy
	sources []string
}

// New binds addr and returns a Server ready for routes to be added. A
// port of 0 binds an ephemeral port, see Addr.
func New(addr string, opts ...Option) (*Server, error) {
	s := &Server{
		log:    slog.New(noop.LogHandler{}),
		limits: conn.DefaultLimits(),
		policy: cors.Default(),
		conns:  make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exec == nil {
		s.exec = executor.Threaded()
	}
	s.router = router.New(router.NotFoundHandler(router.HandlerFunc(s.fallback)))

	if s.endpoints != nil {
		s.metrics = health.NewMetrics()
		err := s.metrics.Register(s.router, *s.endpoints)
		if err != nil {
			return nil, err
		}
	}

	ls, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Cause: err}
	}
	s.ls = ls
	return s, nil
}

// Addr returns the address the Server is bound to.
func (s *Server) Addr() net.Addr {
	return s.ls.Addr()
}

// Health returns the probes registered by the HealthEndpoints option,
// or nil if it was not given.
func (s *Server) Health() *health.Metrics {
	return s.metrics
}

func (s *Server) mutate(f func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	return f()
}

// AddRoute registers h for requests matching method and path.
func (s *Server) AddRoute(path string, method message.Method, h router.Handler) error {
	return s.mutate(func() error {
		return s.router.Add(method, path, h)
	})
}

// SetCORS replaces the CORS policy with a copy of p. A nil p restores
// the default policy.
func (s *Server) SetCORS(p *cors.Policy) error {
	return s.mutate(func() error {
		if p == nil {
			s.policy = cors.Default()
			return nil
		}
		s.policy = p.Clone()
		return nil
	})
}

// SetCORSString replaces the CORS policy with one parsed from a config
// string, see cors.ParseConfig.
func (s *Server) SetCORSString(config string) error {
	return s.mutate(func() error {
		s.policy = cors.ParseConfig(config)
		return nil
	})
}

// AddFilesSource adds a directory which unmatched GET requests are
// served from. Sources are searched in the order they were added.
func (s *Server) AddFilesSource(base string) error {
	return s.mutate(func() error {
		s.sources = append(s.sources, static.Canonical(base))
		return nil
	})
}

func (s *Server) fallback(ctx context.Context, req *message.Request) (*message.Response, error) {
	if len(s.sources) == 0 || (req.Method != message.MethodGet && req.Method != message.MethodHead) {
		return message.Text(message.StatusNotFound, message.StatusNotFound.Reason()), nil
	}
	return static.Handler(s.sources...).Handle(ctx, req)
}

// Run accepts connections until ctx is cancelled. It then closes the
// listener and waits for every in-flight connection to finish. Without
// a DrainTimeout this includes clients which connected but never sent
// a request, so Run only returns once they disconnect. Failures of
// individual connections are logged and never stop Run.
func (s *Server) Run(ctx context.Context) error {
	err := s.mutate(func() error {
		s.running = true
		return nil
	})
	if err != nil {
		return err
	}

	h := &conn.Handler{
		Router: s.router,
		Policy: s.policy,
		Limits: s.limits,
		Logger: s.log,
		Tracer: s.tracer,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.InfoContext(ctx, "starting server", slogfield.String("addr", s.Addr().String()), slogfield.Strings("routes", s.router.Routes()))
	s.setReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.accept(gctx, h)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.setReady(false)

		err := s.ls.Close()
		s.expireReads()
		if err == nil || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	})

	err = g.Wait()
	werr := s.exec.Wait()
	s.log.InfoContext(ctx, "stopped server", slogfield.String("addr", s.Addr().String()))
	return errors.Join(err, werr)
}

// Close closes the listener. A running Server stops accepting and
// returns from Run once its connections finish.
func (s *Server) Close() error {
	err := s.ls.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) setReady(ready bool) {
	if s.metrics == nil {
		return
	}
	if ready {
		s.metrics.Startup.Set(true)
	}
	s.metrics.Readiness.Set(ready)
}

// track records c as open. Once draining has begun c gets its read
// deadline straight away.
func (s *Server) track(c net.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conns[c] = struct{}{}
	if s.draining && s.drain > 0 {
		c.SetReadDeadline(time.Now().Add(s.drain))
	}
}

func (s *Server) untrack(c net.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, c)
}

func (s *Server) open() int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.conns)
}

func (s *Server) expireReads() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.draining = true
	if s.drain <= 0 {
		return
	}
	deadline := time.Now().Add(s.drain)
	for c := range s.conns {
		c.SetReadDeadline(deadline)
	}
}

func (s *Server) accept(ctx context.Context, h *conn.Handler) error {
	// connections finish serving even after shutdown begins
	connCtx := context.WithoutCancel(ctx)

	var delay time.Duration
	for {
		c, err := s.ls.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			delay = backoff(delay)
			s.log.WarnContext(ctx, "failed to accept connection", slogfield.Error(err), slogfield.Duration("retry_in", delay))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		s.track(c)
		err = s.exec.Go(ctx, c, func(_ context.Context, st conn.Stream) {
			defer s.untrack(c)
			h.Serve(connCtx, st)
		})
		if err != nil {
			s.untrack(c)
			s.log.WarnContext(ctx, "failed to schedule connection", slogfield.RemoteAddr(c.RemoteAddr().String()), slogfield.Error(err))
		}
	}
}

const maxAcceptDelay = time.Second

func backoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	return min(2*d, maxAcceptDelay)
}
