// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelslog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type logRecord struct {
	Message string `json:"msg"`
	ConnID  string `json:"conn_id"`
	OTel    struct {
		TraceID string `json:"trace_id"`
		SpanID  string `json:"span_id"`
		Sampled bool   `json:"sampled"`
	} `json:"otel"`
}

func decode(t *testing.T, buf *bytes.Buffer) logRecord {
	t.Helper()

	var record logRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestHandler_Handle(t *testing.T) {
	t.Run("will not add trace id and span id", func(t *testing.T) {
		t.Run("if the context has no span", func(t *testing.T) {
			var buf bytes.Buffer
			log := New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{}))

			log.InfoContext(context.Background(), "accepted connection")

			record := decode(t, &buf)
			if !assert.Equal(t, "accepted connection", record.Message) {
				return
			}
			if !assert.Empty(t, record.OTel.TraceID) {
				return
			}
			if !assert.Empty(t, record.OTel.SpanID) {
				return
			}
		})
	})

	t.Run("will add trace id and span id", func(t *testing.T) {
		t.Run("if the context has a valid span", func(t *testing.T) {
			var buf bytes.Buffer
			log := New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{})).With(slog.String("conn_id", "abc"))

			tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
			defer tp.Shutdown(context.Background())

			ctx, span := tp.Tracer("otelslog").Start(context.Background(), "conn.Serve")
			defer span.End()

			log.InfoContext(ctx, "served request")

			record := decode(t, &buf)
			if !assert.Equal(t, "abc", record.ConnID) {
				return
			}
			if !assert.Equal(t, span.SpanContext().TraceID().String(), record.OTel.TraceID) {
				return
			}
			if !assert.Equal(t, span.SpanContext().SpanID().String(), record.OTel.SpanID) {
				return
			}
			if !assert.True(t, record.OTel.Sampled) {
				return
			}
		})
	})
}

func TestHandler_WithGroup(t *testing.T) {
	t.Run("will nest attributes", func(t *testing.T) {
		t.Run("if a group is opened", func(t *testing.T) {
			var buf bytes.Buffer
			var h slog.Handler = NewHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{}))
			h = h.WithGroup("request")

			slog.New(h).Info("served request", slog.Int("status", 200))

			var record struct {
				Request struct {
					Status int `json:"status"`
				} `json:"request"`
			}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			if !assert.Equal(t, 200, record.Request.Status) {
				return
			}
		})
	})
}
