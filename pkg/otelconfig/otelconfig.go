// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelconfig initializes the trace provider connection spans
// are exported through.
package otelconfig

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Common holds the settings shared by every Initializer.
type Common struct {
	ServiceName string `config:"service_name"`
}

func (c Common) resource(ctx context.Context, opts ...resource.Option) (*resource.Resource, error) {
	opts = append(
		opts,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(c.ServiceName)),
	)
	return resource.New(ctx, opts...)
}

// CommonOption configures any Initializer.
type CommonOption interface {
	GoogleCloudOption
	LocalOption
	OTLPOption
}

type commonOptionFunc func(*Common)

func (f commonOptionFunc) ApplyGCP(cfg *GoogleCloudConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(&cfg.Common)
}

// ServiceName sets the service.name resource attribute.
func ServiceName(name string) CommonOption {
	return commonOptionFunc(func(c *Common) {
		c.ServiceName = name
	})
}

// Initializer creates a trace.TracerProvider. Providers which also
// implement Shutdown(context.Context) error are flushed on shutdown.
type Initializer interface {
	Init(context.Context) (trace.TracerProvider, error)
}

// Noop leaves the global trace.TracerProvider in place.
var Noop = noopConfiger{}

type noopConfiger struct{}

func (noopConfiger) Init(context.Context) (trace.TracerProvider, error) {
	return otel.GetTracerProvider(), nil
}

// LocalConfig is the config for the Local Initializer.
type LocalConfig struct {
	Common

	Out io.Writer
}

// LocalOption are options for the Local Initializer.
type LocalOption interface {
	ApplyLocal(*LocalConfig)
}

type localOptionFunc func(*LocalConfig)

func (f localOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(cfg)
}

// Output sets where the Local Initializer writes spans to.
func Output(w io.Writer) LocalOption {
	return localOptionFunc(func(lc *LocalConfig) {
		lc.Out = w
	})
}

// Local returns an Initializer which pretty prints every span, by
// default to stdout.
func Local(opts ...LocalOption) Initializer {
	cfg := LocalConfig{
		Out: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyLocal(&cfg)
	}
	return cfg
}

// Init implements the [Initializer] interface.
func (cfg LocalConfig) Init(ctx context.Context) (trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := cfg.Common.resource(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// Config selects and configures an Initializer by name.
type Config struct {
	Common `config:",squash"`

	// Exporter is one of none, local, otlp or gcp.
	Exporter string `config:"exporter"`

	// Target is the OTLP collector address, used by otlp.
	Target string `config:"target"`

	// ProjectId is the Google Cloud project, used by gcp.
	ProjectId string `config:"project_id"`
}

// UnknownExporterError is returned by FromConfig for an unrecognized
// Config.Exporter.
type UnknownExporterError struct {
	Exporter string
}

// Error implements the [builtin.error] interface.
func (e UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown trace exporter: %s", e.Exporter)
}

// FromConfig returns the Initializer described by cfg. An empty
// exporter selects Noop.
func FromConfig(cfg Config) (Initializer, error) {
	switch cfg.Exporter {
	case "", "none":
		return Noop, nil
	case "local":
		return Local(ServiceName(cfg.ServiceName)), nil
	case "otlp":
		return OTLP(ServiceName(cfg.ServiceName), OTLPTarget(cfg.Target)), nil
	case "gcp":
		return GoogleCloud(ServiceName(cfg.ServiceName), GoogleCloudProjectId(cfg.ProjectId)), nil
	default:
		return nil, UnknownExporterError{Exporter: cfg.Exporter}
	}
}
