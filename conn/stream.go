// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package conn

import (
	"context"
	"errors"
	"net"
	"time"
)

// Stream is the I/O capability a Handler is driven over. How a call
// waits for the socket is decided by the implementation, the Handler
// never needs to know.
type Stream interface {
	// Read reads at most len(p) bytes into p.
	Read(ctx context.Context, p []byte) (int, error)

	// WriteAll writes all of p or returns an error.
	WriteAll(ctx context.Context, p []byte) error

	Close() error
}

type blocking struct {
	net.Conn
}

// Blocking returns a Stream whose calls block the calling goroutine, and
// the OS thread it is locked to if any, until the socket is ready. The
// context is ignored.
func Blocking(c net.Conn) Stream {
	return blocking{Conn: c}
}

func (s blocking) Read(_ context.Context, p []byte) (int, error) {
	return s.Conn.Read(p)
}

func (s blocking) WriteAll(_ context.Context, p []byte) error {
	return writeAll(s.Conn, p)
}

type suspending struct {
	net.Conn
}

// Suspending returns a Stream where every call is a suspension point.
// Cancelling the context interrupts a pending call by expiring the
// socket deadline, the call then returns the context's error.
func Suspending(c net.Conn) Stream {
	return suspending{Conn: c}
}

// a deadline in the past makes pending I/O return immediately
var aLongTimeAgo = time.Unix(1, 0)

func (s suspending) Read(ctx context.Context, p []byte) (n int, err error) {
	err = s.interruptible(ctx, func() error {
		n, err = s.Conn.Read(p)
		return err
	})
	return n, err
}

func (s suspending) WriteAll(ctx context.Context, p []byte) error {
	return s.interruptible(ctx, func() error {
		return writeAll(s.Conn, p)
	})
}

func (s suspending) interruptible(ctx context.Context, f func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		s.Conn.SetDeadline(aLongTimeAgo)
	})
	err := f()
	if !stop() {
		// the deadline was moved, report why
		return errors.Join(ctx.Err(), err)
	}
	return err
}

func writeAll(c net.Conn, p []byte) error {
	for len(p) > 0 {
		n, err := c.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
