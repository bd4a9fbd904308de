// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cors

import (
	"strconv"
	"strings"
	"time"
)

// ParseConfig builds a Policy from a flat configuration string of
// comma separated key=value tokens, e.g.
//
//	origin=http://localhost:3000,credentials=true,headers=Content-Type,X-Token
//
// Recognized keys are origin, methods, headers, credentials and max_age,
// along with their allow_ prefixed aliases. Keys are case-insensitive.
// A token without '=' continues the list of the preceding origin,
// methods or headers key. Methods may also be separated by spaces.
//
// Parsing is lenient: unknown keys and malformed tokens are skipped and
// any key which is not present keeps its value from Default.
func ParseConfig(s string) *Policy {
	return Default().Apply(s)
}

// Apply parses s on top of a copy of p. See ParseConfig for the grammar.
func (p *Policy) Apply(s string) *Policy {
	np := p.Clone()

	// a key only replaces the previous value the first time it is seen
	replaced := make(map[string]bool)
	var list *[]string
	appendList := func(dst *[]string, key, v string) {
		if !replaced[key] {
			*dst = nil
			replaced[key] = true
		}
		for _, item := range strings.Fields(v) {
			*dst = append(*dst, item)
		}
	}

	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		k, v, ok := strings.Cut(token, "=")
		if !ok {
			if list == &np.AllowMethods {
				token = strings.ToUpper(token)
			}
			if list != nil {
				*list = append(*list, strings.Fields(token)...)
			}
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)

		list = nil
		switch k {
		case "origin", "origins", "allow_origin":
			appendList(&np.AllowOrigins, "origin", v)
			list = &np.AllowOrigins
		case "methods", "allow_methods":
			appendList(&np.AllowMethods, "methods", strings.ToUpper(v))
			list = &np.AllowMethods
		case "headers", "allow_headers":
			appendList(&np.AllowHeaders, "headers", v)
			list = &np.AllowHeaders
		case "credentials", "allow_credentials":
			b, err := strconv.ParseBool(v)
			if err != nil {
				continue
			}
			np.AllowCredentials = b
		case "max_age", "max_age_seconds":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				continue
			}
			np.MaxAge = time.Duration(n) * time.Second
		}
	}
	return np
}
