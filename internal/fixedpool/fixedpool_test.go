// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fixedpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_Submit(t *testing.T) {
	t.Run("will run every task", func(t *testing.T) {
		p := New(3)

		var counter atomic.Int32
		for i := 0; i < 10; i++ {
			err := p.Submit(context.Background(), func() {
				counter.Add(1)
			})
			if !assert.NoError(t, err) {
				return
			}
		}

		if !assert.NoError(t, p.Close()) {
			return
		}
		if !assert.Equal(t, int32(10), counter.Load()) {
			return
		}
	})

	t.Run("will never run more tasks than workers at once", func(t *testing.T) {
		p := New(2)

		var running, peak atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			err := p.Submit(context.Background(), func() {
				defer wg.Done()
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
			})
			if !assert.NoError(t, err) {
				return
			}
		}
		wg.Wait()
		p.Close()

		if !assert.LessOrEqual(t, peak.Load(), int32(2)) {
			return
		}
	})

	t.Run("will return the context error", func(t *testing.T) {
		t.Run("if every worker is busy until the context is done", func(t *testing.T) {
			p := New(1)
			release := make(chan struct{})
			err := p.Submit(context.Background(), func() { <-release })
			if !assert.NoError(t, err) {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			err = p.Submit(ctx, func() {})
			close(release)
			p.Close()

			if !assert.ErrorIs(t, err, context.DeadlineExceeded) {
				return
			}
		})
	})

	t.Run("will return ErrClosed", func(t *testing.T) {
		t.Run("if the pool has been closed", func(t *testing.T) {
			p := New(1)
			p.Close()

			err := p.Submit(context.Background(), func() {})
			if !assert.ErrorIs(t, err, ErrClosed) {
				return
			}
		})
	})
}

func TestPool_Close(t *testing.T) {
	t.Run("will wait for running tasks", func(t *testing.T) {
		p := New(1)

		var finished atomic.Bool
		started := make(chan struct{})
		err := p.Submit(context.Background(), func() {
			close(started)
			time.Sleep(10 * time.Millisecond)
			finished.Store(true)
		})
		if !assert.NoError(t, err) {
			return
		}
		<-started

		if !assert.NoError(t, p.Close()) {
			return
		}
		if !assert.True(t, finished.Load()) {
			return
		}
	})

	t.Run("will return recovered panics", func(t *testing.T) {
		p := New(1)
		panicErr := errors.New("panic error")

		err := p.Submit(context.Background(), func() { panic(panicErr) })
		if !assert.NoError(t, err) {
			return
		}
		err = p.Submit(context.Background(), func() { panic("not an error") })
		if !assert.NoError(t, err) {
			return
		}

		// the worker is free again once the second submit is accepted,
		// so a third submit guarantees the second task has finished
		err = p.Submit(context.Background(), func() {})
		if !assert.NoError(t, err) {
			return
		}

		err = p.Close()
		if !assert.ErrorIs(t, err, panicErr) {
			return
		}
		if !assert.ErrorContains(t, err, "not an error") {
			return
		}
	})

	t.Run("will be safe to call twice", func(t *testing.T) {
		p := New(2)
		p.Close()

		if !assert.NoError(t, p.Close()) {
			return
		}
	})
}
