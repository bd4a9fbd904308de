// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package health

import (
	"context"

	"github.com/z5labs/pageboy/message"
	"github.com/z5labs/pageboy/router"
)

// Handler wraps a Metric into a router.Handler.
//
// If m.Healthy returns true, then status 200 is returned,
// else, status 503 is returned.
func Handler(m Metric) router.Handler {
	if h, ok := m.(router.Handler); ok {
		return h
	}
	return router.HandlerFunc(func(ctx context.Context, _ *message.Request) (*message.Response, error) {
		if m.Healthy(ctx) {
			return message.Text(message.StatusOK, "ok"), nil
		}
		return message.Text(message.StatusServiceUnavailable, message.StatusServiceUnavailable.Reason()), nil
	})
}

// Endpoints are the paths each Metric is served on. An empty path
// disables that endpoint.
type Endpoints struct {
	Startup   string `config:"startup"`
	Liveness  string `config:"liveness"`
	Readiness string `config:"readiness"`
}

// DefaultEndpoints returns the paths used when none are configured.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Startup:   "/health/startup",
		Liveness:  "/health/liveness",
		Readiness: "/health/readiness",
	}
}

// Metrics are the standard probes of a running server.
type Metrics struct {
	Startup   *Binary
	Liveness  *Binary
	Readiness *Binary
}

// NewMetrics returns Metrics where only liveness starts healthy.
func NewMetrics() *Metrics {
	return &Metrics{
		Startup:   Unhealthy(),
		Liveness:  &Binary{},
		Readiness: Unhealthy(),
	}
}

// Register adds a GET route to r for every non-empty endpoint.
func (m *Metrics) Register(r *router.Router, e Endpoints) error {
	routes := []struct {
		path   string
		metric Metric
	}{
		{path: e.Startup, metric: m.Startup},
		{path: e.Liveness, metric: m.Liveness},
		{path: e.Readiness, metric: m.Readiness},
	}
	for _, route := range routes {
		if route.path == "" {
			continue
		}
		err := r.Add(message.MethodGet, route.path, Handler(route.metric))
		if err != nil {
			return err
		}
	}
	return nil
}
