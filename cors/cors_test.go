// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cors

import (
	"testing"
	"time"

	"github.com/z5labs/pageboy/message"

	"github.com/stretchr/testify/assert"
)

func request(method message.Method, origin string) *message.Request {
	req := &message.Request{
		Method: method,
		Path:   "/anything",
		Header: make(message.Header),
	}
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestPolicy_Decide(t *testing.T) {
	t.Run("will short circuit with 204", func(t *testing.T) {
		t.Run("if the request is a preflight from an allowed origin", func(t *testing.T) {
			p := ParseConfig("origin=http://localhost:3000,credentials=true")

			d := p.Decide(request(message.MethodOptions, "http://localhost:3000"))
			if !assert.NotNil(t, d.Preflight) {
				return
			}
			resp := d.Preflight
			if !assert.Equal(t, message.StatusNoContent, resp.Status) {
				return
			}
			if !assert.Empty(t, resp.Content) {
				return
			}
			if !assert.Equal(t, "http://localhost:3000", resp.Header.Get(HeaderAllowOrigin)) {
				return
			}
			if !assert.Equal(t, "true", resp.Header.Get(HeaderAllowCredentials)) {
				return
			}
			if !assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", resp.Header.Get(HeaderAllowMethods)) {
				return
			}
			if !assert.Equal(t, "Content-Type, Authorization", resp.Header.Get(HeaderAllowHeaders)) {
				return
			}
			if !assert.Equal(t, "600", resp.Header.Get(HeaderMaxAge)) {
				return
			}
			if !assert.Equal(t, "Origin", resp.Header.Get(HeaderVary)) {
				return
			}
		})

		t.Run("if the request is a preflight from a disallowed origin", func(t *testing.T) {
			p := ParseConfig("origin=http://localhost:3000")

			d := p.Decide(request(message.MethodOptions, "http://evil.example"))
			if !assert.NotNil(t, d.Preflight) {
				return
			}
			if !assert.Equal(t, message.StatusNoContent, d.Preflight.Status) {
				return
			}
			_, ok := d.Preflight.Header.Lookup(HeaderAllowOrigin)
			if !assert.False(t, ok) {
				return
			}
			_, ok = d.Preflight.Header.Lookup(HeaderAllowMethods)
			if !assert.False(t, ok) {
				return
			}
		})
	})

	t.Run("will use the wildcard origin", func(t *testing.T) {
		t.Run("if the default policy is used", func(t *testing.T) {
			d := Default().Decide(request(message.MethodGet, "http://a.example"))
			if !assert.Nil(t, d.Preflight) {
				return
			}
			if !assert.Equal(t, Wildcard, d.Header.Get(HeaderAllowOrigin)) {
				return
			}
			_, ok := d.Header.Lookup(HeaderVary)
			if !assert.False(t, ok) {
				return
			}
			_, ok = d.Header.Lookup(HeaderMaxAge)
			if !assert.False(t, ok) {
				return
			}
		})

		t.Run("if the request has no origin and credentials are disabled", func(t *testing.T) {
			d := Default().Decide(request(message.MethodGet, ""))
			if !assert.Equal(t, Wildcard, d.Header.Get(HeaderAllowOrigin)) {
				return
			}
		})
	})

	t.Run("will echo the request origin", func(t *testing.T) {
		t.Run("if credentials are enabled with a wildcard origin", func(t *testing.T) {
			p := ParseConfig("credentials=true")

			d := p.Decide(request(message.MethodGet, "http://a.example"))
			if !assert.Equal(t, "http://a.example", d.Header.Get(HeaderAllowOrigin)) {
				return
			}
			if !assert.Equal(t, "Origin", d.Header.Get(HeaderVary)) {
				return
			}
		})

		t.Run("if the origin is in the allow list", func(t *testing.T) {
			p := ParseConfig("origin=http://a.example,http://b.example")

			d := p.Decide(request(message.MethodPost, "http://b.example"))
			if !assert.Equal(t, "http://b.example", d.Header.Get(HeaderAllowOrigin)) {
				return
			}
		})
	})

	t.Run("will not send an allow origin header", func(t *testing.T) {
		t.Run("if credentials are enabled and the request has no origin", func(t *testing.T) {
			p := ParseConfig("credentials=true")

			d := p.Decide(request(message.MethodGet, ""))
			_, ok := d.Header.Lookup(HeaderAllowOrigin)
			if !assert.False(t, ok) {
				return
			}
		})

		t.Run("if the origin is not in the allow list", func(t *testing.T) {
			p := ParseConfig("origin=http://a.example")

			d := p.Decide(request(message.MethodGet, "http://c.example"))
			_, ok := d.Header.Lookup(HeaderAllowOrigin)
			if !assert.False(t, ok) {
				return
			}
			_, ok = d.Header.Lookup(HeaderAllowCredentials)
			if !assert.False(t, ok) {
				return
			}
		})
	})
}

func TestParseConfig(t *testing.T) {
	t.Run("will return the default policy", func(t *testing.T) {
		t.Run("if the config is empty", func(t *testing.T) {
			p := ParseConfig("")
			if !assert.Equal(t, Default(), p) {
				return
			}
		})

		t.Run("if every token is unknown or malformed", func(t *testing.T) {
			p := ParseConfig("bogus=1,credentials=maybe,max_age=-5,max_age=abc,,")
			if !assert.Equal(t, Default(), p) {
				return
			}
		})
	})

	t.Run("will parse every key", func(t *testing.T) {
		p := ParseConfig("origin=http://a.example, methods=get post, headers=X-Token,X-Trace, credentials=true, max_age=30")

		expected := &Policy{
			AllowOrigins:     []string{"http://a.example"},
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"X-Token", "X-Trace"},
			AllowCredentials: true,
			MaxAge:           30 * time.Second,
		}
		if !assert.Equal(t, expected, p) {
			return
		}
	})

	t.Run("will upper-case every method", func(t *testing.T) {
		t.Run("if the methods continue past the first comma", func(t *testing.T) {
			p := ParseConfig("methods=get,post patch,origin=http://a.example,delete")

			if !assert.Equal(t, []string{"GET", "POST", "PATCH"}, p.AllowMethods) {
				return
			}
			if !assert.Equal(t, []string{"http://a.example", "delete"}, p.AllowOrigins) {
				return
			}
		})
	})

	t.Run("will accept aliased keys", func(t *testing.T) {
		p := ParseConfig("ALLOW_ORIGIN=http://a.example,allow_methods=PUT,allow_headers=X-A,allow_credentials=1,max_age_seconds=5")

		if !assert.Equal(t, []string{"http://a.example"}, p.AllowOrigins) {
			return
		}
		if !assert.Equal(t, []string{"PUT"}, p.AllowMethods) {
			return
		}
		if !assert.Equal(t, []string{"X-A"}, p.AllowHeaders) {
			return
		}
		if !assert.True(t, p.AllowCredentials) {
			return
		}
		if !assert.Equal(t, 5*time.Second, p.MaxAge) {
			return
		}
	})

	t.Run("will append repeated list keys", func(t *testing.T) {
		p := ParseConfig("origin=http://a.example,origin=http://b.example")
		if !assert.Equal(t, []string{"http://a.example", "http://b.example"}, p.AllowOrigins) {
			return
		}
	})

	t.Run("will ignore continuation tokens", func(t *testing.T) {
		t.Run("if no list key precedes them", func(t *testing.T) {
			p := ParseConfig("stray,credentials=true,other")
			if !assert.Equal(t, []string{Wildcard}, p.AllowOrigins) {
				return
			}
			if !assert.True(t, p.AllowCredentials) {
				return
			}
		})
	})
}

func TestPolicy_Apply(t *testing.T) {
	t.Run("will not modify the receiver", func(t *testing.T) {
		base := Default()
		p := base.Apply("origin=http://a.example")

		if !assert.Equal(t, []string{Wildcard}, base.AllowOrigins) {
			return
		}
		if !assert.Equal(t, []string{"http://a.example"}, p.AllowOrigins) {
			return
		}
	})
}
