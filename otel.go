// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pageboy

import (
	"context"

	"github.com/z5labs/pageboy/pkg/otelconfig"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type shutdownInterface interface {
	Shutdown(ctx context.Context) error
}

// ManageOTel returns a lifecycle hook which installs the trace.TracerProvider
// created by the Initializer f returns as the global provider before any
// Runtime runs. Once every Runtime has returned the provider is shut
// down, if it supports it, which flushes any buffered spans.
func ManageOTel(f func(context.Context) (otelconfig.Initializer, error)) func(*Lifecycle) {
	return func(life *Lifecycle) {
		var tp trace.TracerProvider

		life.PreRun(func(ctx context.Context) error {
			initer, err := f(ctx)
			if err != nil {
				return err
			}

			tp, err = initer.Init(ctx)
			if err != nil {
				return err
			}

			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.Baggage{},
				propagation.TraceContext{},
			))
			if tp != otel.GetTracerProvider() {
				otel.SetTracerProvider(tp)
			}
			return nil
		})

		life.PostRun(func(ctx context.Context) error {
			sd, ok := tp.(shutdownInterface)
			if !ok {
				return nil
			}
			return sd.Shutdown(ctx)
		})
	}
}
