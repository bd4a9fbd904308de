// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cors implements the Cross-Origin Resource Sharing policy
// applied to every request before it is routed.
package cors

import (
	"strconv"
	"strings"
	"time"

	"github.com/z5labs/pageboy/message"
)

// Wildcard is the AllowOrigins entry which allows any origin.
const Wildcard = "*"

const (
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderMaxAge           = "Access-Control-Max-Age"
	HeaderVary             = "Vary"
)

// Policy decides which cross-origin requests are allowed.
type Policy struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool

	// MaxAge is how long a preflight result may be cached. Zero
	// omits the Access-Control-Max-Age header.
	MaxAge time.Duration
}

// Default returns the permissive policy used when none is configured.
func Default() *Policy {
	return &Policy{
		AllowOrigins: []string{Wildcard},
		AllowMethods: []string{
			string(message.MethodGet),
			string(message.MethodPost),
			string(message.MethodPut),
			string(message.MethodDelete),
			string(message.MethodOptions),
		},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           600 * time.Second,
	}
}

// Clone returns a deep copy of p.
func (p *Policy) Clone() *Policy {
	c := *p
	c.AllowOrigins = append([]string(nil), p.AllowOrigins...)
	c.AllowMethods = append([]string(nil), p.AllowMethods...)
	c.AllowHeaders = append([]string(nil), p.AllowHeaders...)
	return &c
}

func (p *Policy) allowsAnyOrigin() bool {
	for _, o := range p.AllowOrigins {
		if o == Wildcard {
			return true
		}
	}
	return false
}

// AllowedOrigin returns the value for Access-Control-Allow-Origin given
// the request's Origin header. The wildcard is never returned when
// credentials are allowed, the request origin is echoed instead.
func (p *Policy) AllowedOrigin(origin string) (string, bool) {
	if p.allowsAnyOrigin() {
		if !p.AllowCredentials {
			return Wildcard, true
		}
		if origin == "" {
			return "", false
		}
		return origin, true
	}
	if origin == "" {
		return "", false
	}
	for _, o := range p.AllowOrigins {
		if strings.EqualFold(o, origin) {
			return origin, true
		}
	}
	return "", false
}

// Decision is the outcome of applying a Policy to a request.
type Decision struct {
	// Header must be merged into the handler's response without
	// overwriting values the handler set itself.
	Header message.Header

	// Preflight is non-nil for OPTIONS requests. It must be written
	// as is and the request must not be routed.
	Preflight *message.Response
}

// Decide applies p to req.
func (p *Policy) Decide(req *message.Request) Decision {
	preflight := req.Method == message.MethodOptions
	h := p.headers(req.Origin(), preflight)
	if !preflight {
		return Decision{Header: h}
	}

	resp := message.Empty(message.StatusNoContent)
	resp.Header = h
	return Decision{Header: h.Clone(), Preflight: resp}
}

func (p *Policy) headers(origin string, preflight bool) message.Header {
	h := make(message.Header)
	allowed, ok := p.AllowedOrigin(origin)
	if !ok {
		if origin != "" {
			h.Set(HeaderVary, "Origin")
		}
		return h
	}

	h.Set(HeaderAllowOrigin, allowed)
	if allowed != Wildcard {
		h.Set(HeaderVary, "Origin")
	}
	h.Set(HeaderAllowMethods, strings.Join(p.AllowMethods, ", "))
	h.Set(HeaderAllowHeaders, strings.Join(p.AllowHeaders, ", "))
	if p.AllowCredentials {
		h.Set(HeaderAllowCredentials, "true")
	}
	if preflight && p.MaxAge > 0 {
		h.Set(HeaderMaxAge, strconv.Itoa(int(p.MaxAge/time.Second)))
	}
	return h
}
