// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package fixedpool implements a fixed size pool of workers, each locked
// to its own OS thread for its whole lifetime.
package fixedpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrClosed is returned when submitting to a closed Pool.
var ErrClosed = errors.New("fixedpool: pool is closed")

// Task is a unit of work run by a single worker.
type Task func()

// Pool runs Tasks on a fixed number of OS threads.
type Pool struct {
	tasks     chan Task
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu     sync.Mutex
	panics []error
}

// New starts a Pool with n workers. n below 1 is treated as 1.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		tasks: make(chan Task),
		done:  make(chan struct{}),
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()

	// never unlocked, the thread exits with the worker
	runtime.LockOSThread()

	for {
		select {
		case <-p.done:
			return
		case t := <-p.tasks:
			p.run(t)
		}
	}
}

func (p *Pool) run(t Task) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		rerr, ok := r.(error)
		if !ok {
			rerr = fmt.Errorf("recovered from panic: %v", r)
		}
		p.mu.Lock()
		p.panics = append(p.panics, rerr)
		p.mu.Unlock()
	}()

	t()
}

// Submit blocks until an idle worker accepts t, ctx is cancelled or
// the Pool is closed.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	case p.tasks <- t:
		return nil
	}
}

// Close stops accepting Tasks and waits for running ones to return. Any
// panics recovered from Tasks are joined into the returned error.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.panics...)
}
