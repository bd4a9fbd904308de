// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package executor provides the scheduling models a server can run its
// connections under. Each model decides where a connection is served
// and whether its Stream blocks or suspends, the connection logic is
// identical across all of them.
package executor

import (
	"context"
	"net"
	"runtime"
	"sync"

	"github.com/z5labs/pageboy/conn"
	"github.com/z5labs/pageboy/internal/fixedpool"

	"golang.org/x/sync/errgroup"
)

// Task serves a single connection.
type Task func(context.Context, conn.Stream)

// Executor schedules a Task for every accepted connection.
type Executor interface {
	// Go schedules t to serve c. It may block until there is capacity
	// for another connection. An error means t was not scheduled and
	// c has been closed.
	Go(ctx context.Context, c net.Conn, t Task) error

	// Wait blocks until every scheduled Task has returned. No Tasks may
	// be scheduled after calling Wait.
	Wait() error
}

type serial struct{}

// Serial returns an Executor which serves each connection to completion
// on the calling goroutine before returning from Go.
func Serial() Executor {
	return serial{}
}

func (serial) Go(ctx context.Context, c net.Conn, t Task) error {
	t(ctx, conn.Blocking(c))
	return nil
}

func (serial) Wait() error {
	return nil
}

type threaded struct {
	wg sync.WaitGroup
}

// Threaded returns an Executor which serves each connection on its own
// goroutine, locked to a dedicated OS thread that exits with it.
func Threaded() Executor {
	return &threaded{}
}

func (e *threaded) Go(ctx context.Context, c net.Conn, t Task) error {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		// never unlocked so the thread is not reused
		runtime.LockOSThread()

		t(ctx, conn.Blocking(c))
	}()
	return nil
}

func (e *threaded) Wait() error {
	e.wg.Wait()
	return nil
}

type pool struct {
	p *fixedpool.Pool
}

// Pool returns an Executor which serves connections on n OS threads.
// Go blocks while all n are busy.
func Pool(n int) Executor {
	return &pool{p: fixedpool.New(n)}
}

func (e *pool) Go(ctx context.Context, c net.Conn, t Task) error {
	err := e.p.Submit(ctx, func() {
		t(ctx, conn.Blocking(c))
	})
	if err != nil {
		c.Close()
		return err
	}
	return nil
}

func (e *pool) Wait() error {
	return e.p.Close()
}

type cooperative struct {
	g errgroup.Group
}

// Cooperative returns an Executor which serves every connection as a
// lightweight task over a suspending Stream, so a task waiting on I/O
// never holds up another. At most limit tasks run at once, a limit
// of 0 or less means no limit.
func Cooperative(limit int) Executor {
	e := &cooperative{}
	if limit > 0 {
		e.g.SetLimit(limit)
	}
	return e
}

func (e *cooperative) Go(ctx context.Context, c net.Conn, t Task) error {
	e.g.Go(func() error {
		t(ctx, conn.Suspending(c))
		return nil
	})
	return nil
}

func (e *cooperative) Wait() error {
	return e.g.Wait()
}

// Config selects an Executor by name.
type Config struct {
	// Model is one of serial, threaded, pool or cooperative.
	Model string `config:"model"`

	// Workers is the pool size for pool and the task limit for
	// cooperative. It is ignored by the other models.
	Workers int `config:"workers"`
}

// UnknownModelError is returned by New for an unrecognized Config.Model.
type UnknownModelError struct {
	Model string
}

// Error implements the [builtin.error] interface.
func (e UnknownModelError) Error() string {
	return "unknown executor model: " + e.Model
}

// New returns the Executor described by cfg. An empty model selects
// Threaded.
func New(cfg Config) (Executor, error) {
	switch cfg.Model {
	case "serial":
		return Serial(), nil
	case "", "threaded":
		return Threaded(), nil
	case "pool":
		n := cfg.Workers
		if n <= 0 {
			n = runtime.NumCPU()
		}
		return Pool(n), nil
	case "cooperative":
		return Cooperative(cfg.Workers), nil
	default:
		return nil, UnknownModelError{Model: cfg.Model}
	}
}
