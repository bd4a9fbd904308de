// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package pageboy bootstraps long running programs around a Runtime,
// such as a server.Server. It reads and merges config sources, builds
// the Runtime(s), calls any lifecycle hooks and cancels everything when
// the process is interrupted.
//
// The two entry points are App, which wraps a cobra.Command, and the
// generic Run, which unmarshals config into a user defined type before
// building the Runtime with it.
package pageboy

import (
	"context"
	"fmt"

	"github.com/z5labs/pageboy/config"
)

// Runtime represents the entry point for user specific code.
// A Runtime should not worry about OS interrupts or config parsing,
// it should be purely focused on its use case e.g. serving HTTP.
type Runtime interface {
	Run(context.Context) error
}

// RuntimeFunc is a functional implementation of the Runtime interface.
type RuntimeFunc func(context.Context) error

// Run implements the [Runtime] interface.
func (f RuntimeFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// AppBuilder initializes a Runtime from a config of type T.
type AppBuilder[T any] interface {
	Build(ctx context.Context, cfg T) (Runtime, error)
}

// AppBuilderFunc is a functional implementation of
// the AppBuilder interface.
type AppBuilderFunc[T any] func(context.Context, T) (Runtime, error)

// Build implements the [AppBuilder] interface.
func (f AppBuilderFunc[T]) Build(ctx context.Context, cfg T) (Runtime, error) {
	return f(ctx, cfg)
}

// Run reads the provided config sources, unmarshals them into T, builds
// the Runtime with the result and, lastly, runs it.
func Run[T any](ctx context.Context, builder AppBuilder[T], srcs ...config.Source) error {
	m, err := config.Read(srcs...)
	if err != nil {
		return ConfigReadError{Cause: err}
	}

	var cfg T
	err = m.Unmarshal(&cfg)
	if err != nil {
		return ConfigUnmarshalError{Cause: err}
	}

	rt, err := builder.Build(ctx, cfg)
	if err != nil {
		return AppBuildError{Cause: err}
	}
	if rt == nil {
		return AppBuildError{Cause: ErrNilRuntime}
	}

	err = rt.Run(ctx)
	if err != nil {
		return AppRunError{Cause: err}
	}
	return nil
}

// ConfigReadError is returned when a config.Source fails to apply.
type ConfigReadError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigReadError) Error() string {
	return fmt.Sprintf("failed to read config source(s): %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigReadError) Unwrap() error {
	return e.Cause
}

// ConfigUnmarshalError is returned when the merged config does not
// fit the config type.
type ConfigUnmarshalError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigUnmarshalError) Error() string {
	return fmt.Sprintf("failed to unmarshal read config source(s) into custom type: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigUnmarshalError) Unwrap() error {
	return e.Cause
}

// AppBuildError
type AppBuildError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e AppBuildError) Error() string {
	return fmt.Sprintf("failed to build app: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AppBuildError) Unwrap() error {
	return e.Cause
}

// AppRunError
type AppRunError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e AppRunError) Error() string {
	return fmt.Sprintf("failed to run app: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AppRunError) Unwrap() error {
	return e.Cause
}
