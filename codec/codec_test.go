// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"strings"
	"testing"

	"github.com/z5labs/pageboy/message"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("will return a complete request", func(t *testing.T) {
		t.Run("if the header section is terminated and there is no body", func(t *testing.T) {
			raw := []byte("GET / HTTP/1.1\r\n\r\n")

			req, n, err := Parse(raw, DefaultLimits())
			require.NoError(t, err)

			assert.Equal(t, len(raw), n)
			assert.Equal(t, message.MethodGet, req.Method)
			assert.Equal(t, "/", req.Path)
			assert.Equal(t, "HTTP/1.1", req.Proto)
			assert.Equal(t, int64(-1), req.ContentLength)
			assert.Empty(t, req.Body)
		})

		t.Run("if the declared body is fully buffered", func(t *testing.T) {
			raw := []byte("POST /echo HTTP/1.1\r\nContent-Length: 5\r\nContent-Type: text/plain\r\n\r\nhello")

			req, n, err := Parse(raw, DefaultLimits())
			require.NoError(t, err)

			assert.Equal(t, len(raw), n)
			assert.Equal(t, message.MethodPost, req.Method)
			assert.Equal(t, int64(5), req.ContentLength)
			assert.Equal(t, []byte("hello"), req.Body)
			assert.Equal(t, "text/plain", req.Header.Get("content-type"))
		})

		t.Run("if the request has no Content-Length but bytes follow the header section", func(t *testing.T) {
			raw := []byte("POST /upload HTTP/1.1\r\nHost: localhost\r\n\r\ntrailing bytes")

			req, n, err := Parse(raw, DefaultLimits())
			require.NoError(t, err)

			assert.Equal(t, len("POST /upload HTTP/1.1\r\nHost: localhost\r\n\r\n"), n)
			assert.Empty(t, req.Body)
		})

		t.Run("if the query string is present", func(t *testing.T) {
			raw := []byte("GET /search?q=go&page=2 HTTP/1.1\r\n\r\n")

			req, _, err := Parse(raw, DefaultLimits())
			require.NoError(t, err)

			assert.Equal(t, "/search", req.Path)
			assert.Equal(t, "q=go&page=2", req.RawQuery)
			assert.Equal(t, "go", req.Query.Get("q"))
			assert.Equal(t, "2", req.Query.Get("page"))
		})

		t.Run("if the target is in absolute form", func(t *testing.T) {
			raw := []byte("GET http://localhost:8080/users?id=1 HTTP/1.1\r\n\r\n")

			req, _, err := Parse(raw, DefaultLimits())
			require.NoError(t, err)

			assert.Equal(t, "/users", req.Path)
			assert.Equal(t, "id=1", req.RawQuery)
		})

		t.Run("if the path has repeated slashes", func(t *testing.T) {
			raw := []byte("GET //api//users HTTP/1.1\r\n\r\n")

			req, _, err := Parse(raw, DefaultLimits())
			require.NoError(t, err)

			assert.Equal(t, "/api/users", req.Path)
		})

		t.Run("if the request is HTTP/1.0", func(t *testing.T) {
			req, _, err := Parse([]byte("GET / HTTP/1.0\r\n\r\n"), DefaultLimits())
			require.NoError(t, err)

			assert.Equal(t, "HTTP/1.0", req.Proto)
		})
	})

	t.Run("will not consume bytes beyond the declared body", func(t *testing.T) {
		first := "POST /a HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc"
		raw := []byte(first + "GET /b HTTP/1.1\r\n\r\n")

		req, n, err := Parse(raw, DefaultLimits())
		require.NoError(t, err)

		assert.Equal(t, len(first), n)
		assert.Equal(t, []byte("abc"), req.Body)
	})

	t.Run("will join duplicate header values", func(t *testing.T) {
		raw := []byte("GET / HTTP/1.1\r\nAccept: text/html\r\naccept: application/json\r\n\r\n")

		req, _, err := Parse(raw, DefaultLimits())
		require.NoError(t, err)

		assert.Equal(t, "text/html, application/json", req.Header.Get("Accept"))
	})

	t.Run("will return ErrIncomplete", func(t *testing.T) {
		testCases := []struct {
			Name string
			Raw  string
		}{
			{Name: "if nothing has been read", Raw: ""},
			{Name: "if the request line is partial", Raw: "GET / HT"},
			{Name: "if the header section is not terminated", Raw: "GET / HTTP/1.1\r\nHost: localhost\r\n"},
			{Name: "if the body is partial", Raw: "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nhello"},
		}
		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				_, _, err := Parse([]byte(testCase.Raw), DefaultLimits())
				assert.ErrorIs(t, err, ErrIncomplete)
			})
		}
	})

	t.Run("will return a ParseError", func(t *testing.T) {
		testCases := []struct {
			Name   string
			Raw    string
			Lim    Limits
			Status message.Status
		}{
			{
				Name:   "if the request line is empty",
				Raw:    "\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if the request line is not a request",
				Raw:    "not a request\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if the request line is garbage and the header section is not terminated yet",
				Raw:    "not a request\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if the request line has too few parts",
				Raw:    "GET /\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if the request line has too many parts",
				Raw:    "GET / x HTTP/1.1\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if the method is lowercase",
				Raw:    "get / HTTP/1.1\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if the method is unknown",
				Raw:    "BREW /pot HTTP/1.1\r\n\r\n",
				Status: message.StatusMethodNotAllowed,
			},
			{
				Name:   "if the protocol version is unsupported",
				Raw:    "GET / HTTP/2.0\r\n\r\n",
				Status: message.StatusHTTPVersionNotSupported,
			},
			{
				Name:   "if the request target is too long",
				Raw:    "GET /" + strings.Repeat("a", 2000) + " HTTP/1.1\r\n\r\n",
				Status: message.StatusURITooLong,
			},
			{
				Name:   "if the request target is not a path",
				Raw:    "GET users HTTP/1.1\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if an asterisk target is used with GET",
				Raw:    "GET * HTTP/1.1\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if a header line has no colon",
				Raw:    "GET / HTTP/1.1\r\nHost localhost\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if a header name contains whitespace",
				Raw:    "GET / HTTP/1.1\r\nHost : localhost\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if a header line is folded",
				Raw:    "GET / HTTP/1.1\r\nX-A: a\r\n b\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if Content-Length is not a number",
				Raw:    "POST / HTTP/1.1\r\nContent-Length: ten\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if Content-Length is negative",
				Raw:    "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if Content-Length values conflict",
				Raw:    "POST / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\nab",
				Status: message.StatusBadRequest,
			},
			{
				Name:   "if Content-Length exceeds the body limit",
				Raw:    "POST / HTTP/1.1\r\nContent-Length: 11\r\n\r\n",
				Lim:    Limits{MaxBody: 10},
				Status: message.StatusPayloadTooLarge,
			},
			{
				Name:   "if the header section exceeds the header limit",
				Raw:    "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 64) + "\r\n\r\n",
				Lim:    Limits{MaxHeader: 32},
				Status: message.StatusHeaderFieldsTooLarge,
			},
			{
				Name:   "if an unterminated header section exceeds the header limit",
				Raw:    "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 64),
				Lim:    Limits{MaxHeader: 32},
				Status: message.StatusHeaderFieldsTooLarge,
			},
		}
		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				lim := testCase.Lim
				if lim == (Limits{}) {
					lim = DefaultLimits()
				}

				_, _, err := Parse([]byte(testCase.Raw), lim)

				var perr *ParseError
				if !assert.ErrorAs(t, err, &perr) {
					return
				}
				assert.Equal(t, testCase.Status, perr.Status)
				assert.NotEmpty(t, perr.Error())
			})
		}
	})
}

func TestParse_UnboundedBody(t *testing.T) {
	t.Run("will return a 413 ParseError", func(t *testing.T) {
		t.Run("if Content-Length cannot be buffered and no body limit is set", func(t *testing.T) {
			raw := []byte("POST / HTTP/1.1\r\nContent-Length: 9223372036854775807\r\n\r\n")

			var err error
			if !assert.NotPanics(t, func() {
				_, _, err = Parse(raw, Limits{})
			}) {
				return
			}

			var perr *ParseError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, message.StatusPayloadTooLarge, perr.Status) {
				return
			}
		})
	})

	t.Run("will wait for the body", func(t *testing.T) {
		t.Run("if Content-Length is large but bufferable and no body limit is set", func(t *testing.T) {
			raw := []byte("POST / HTTP/1.1\r\nContent-Length: 1048576\r\n\r\nabc")

			_, _, err := Parse(raw, Limits{})
			if !assert.ErrorIs(t, err, ErrIncomplete) {
				return
			}
		})
	})
}

func TestParse_Incremental(t *testing.T) {
	t.Run("will only complete once the last byte arrives", func(t *testing.T) {
		raw := []byte("PUT /items/1 HTTP/1.1\r\nContent-Length: 4\r\nX-Trace: abc\r\n\r\nbody")

		for i := 0; i < len(raw); i++ {
			_, _, err := Parse(raw[:i], DefaultLimits())
			if !assert.ErrorIs(t, err, ErrIncomplete, "prefix of length %d", i) {
				return
			}
		}

		req, n, err := Parse(raw, DefaultLimits())
		require.NoError(t, err)
		assert.Equal(t, len(raw), n)
		assert.Equal(t, []byte("body"), req.Body)
	})
}

func TestAppendRequest_RoundTrip(t *testing.T) {
	testCases := []struct {
		Name string
		Req  *message.Request
	}{
		{
			Name: "without a body",
			Req: &message.Request{
				Method: message.MethodGet,
				Path:   "/",
				Proto:  "HTTP/1.1",
				Header: message.Header{"Host": "localhost"},
				Body:   []byte{},
			},
		},
		{
			Name: "with a body and query",
			Req: &message.Request{
				Method:   message.MethodPost,
				Path:     "/users/42",
				RawQuery: "verbose=true",
				Proto:    "HTTP/1.1",
				Header: message.Header{
					"Content-Length": "13",
					"Content-Type":   "application/json",
					"Origin":         "http://localhost:3000",
				},
				Body: []byte(`{"name":"a"}` + "\n"),
			},
		},
		{
			Name: "with binary body bytes",
			Req: &message.Request{
				Method: message.MethodPut,
				Path:   "/blob",
				Proto:  "HTTP/1.1",
				Header: message.Header{"Content-Length": "4"},
				Body:   []byte{0x00, 0xff, '\r', '\n'},
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			raw := AppendRequest(nil, testCase.Req)

			req, n, err := Parse(raw, DefaultLimits())
			require.NoError(t, err)

			assert.Equal(t, len(raw), n)
			assert.Equal(t, testCase.Req.Method, req.Method)
			assert.Equal(t, testCase.Req.Path, req.Path)
			assert.Equal(t, testCase.Req.RawQuery, req.RawQuery)
			assert.Equal(t, testCase.Req.Header, req.Header)
			assert.Equal(t, testCase.Req.Body, req.Body)
		})
	}
}

func TestAppendResponse(t *testing.T) {
	t.Run("will always compute Content-Length from the content", func(t *testing.T) {
		resp := message.Text(message.StatusOK, "home")
		resp.SetHeader("Content-Length", "9999")

		raw := string(Serialize(resp))

		assert.True(t, strings.HasPrefix(raw, "HTTP/1.1 200 OK\r\n"))
		assert.Contains(t, raw, "Content-Length: 4\r\n")
		assert.NotContains(t, raw, "9999")
		assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhome"))
	})

	t.Run("will default the content type", func(t *testing.T) {
		raw := string(Serialize(message.Empty(message.StatusNoContent)))

		assert.Contains(t, raw, "Content-Type: "+message.DefaultContentType+"\r\n")
		assert.Contains(t, raw, "Content-Length: 0\r\n")
	})

	t.Run("will write extra headers in sorted order", func(t *testing.T) {
		resp := message.Text(message.StatusOK, "")
		resp.SetHeader("Vary", "Origin")
		resp.SetHeader("Access-Control-Allow-Origin", "*")

		raw := string(Serialize(resp))

		acao := strings.Index(raw, "Access-Control-Allow-Origin: *\r\n")
		vary := strings.Index(raw, "Vary: Origin\r\n")
		assert.True(t, acao > 0 && vary > acao)
		assert.Contains(t, raw, "Connection: close\r\n")
	})

	t.Run("will strip line breaks from header values", func(t *testing.T) {
		resp := message.Text(message.StatusOK, "")
		resp.SetHeader("X-Name", "a\r\nSet-Cookie: evil=1")

		raw := string(Serialize(resp))

		assert.Contains(t, raw, "X-Name: a  Set-Cookie: evil=1\r\n")
		assert.NotContains(t, raw, "\r\nSet-Cookie")
	})

	t.Run("will keep the space after the code", func(t *testing.T) {
		t.Run("if the status has no reason phrase", func(t *testing.T) {
			resp := message.Text(message.Status(299), "")

			raw := Serialize(resp)
			if !assert.True(t, strings.HasPrefix(string(raw), "HTTP/1.1 299 \r\n")) {
				return
			}

			got, err := ParseResponse(raw)
			if !assert.NoError(t, err) {
				return
			}
			if !assert.Equal(t, message.Status(299), got.Status) {
				return
			}
		})
	})

	t.Run("will be parsed back by ParseResponse", func(t *testing.T) {
		resp := message.Bytes(message.StatusCreated, "application/json", []byte(`{"id":1}`))
		resp.SetHeader("Location", "/items/1")

		got, err := ParseResponse(Serialize(resp))
		require.NoError(t, err)

		assert.Equal(t, message.StatusCreated, got.Status)
		assert.Equal(t, "application/json", got.ContentType)
		assert.Equal(t, resp.Content, got.Content)
		assert.Equal(t, "/items/1", got.Header.Get("Location"))
		assert.Equal(t, "close", got.Header.Get("Connection"))
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("will return ErrIncomplete", func(t *testing.T) {
		t.Run("if the header section is not terminated", func(t *testing.T) {
			_, err := ParseResponse([]byte("HTTP/1.1 200 OK\r\n"))
			assert.ErrorIs(t, err, ErrIncomplete)
		})

		t.Run("if the body is shorter than Content-Length", func(t *testing.T) {
			_, err := ParseResponse([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nab"))
			assert.ErrorIs(t, err, ErrIncomplete)
		})
	})

	t.Run("will return a ParseError", func(t *testing.T) {
		t.Run("if the status line is malformed", func(t *testing.T) {
			_, err := ParseResponse([]byte("garbage\r\n\r\n"))

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	})

	t.Run("will read the body to the end if there is no Content-Length", func(t *testing.T) {
		resp, err := ParseResponse([]byte("HTTP/1.1 200 OK\r\n\r\nrest of stream"))
		require.NoError(t, err)

		assert.Equal(t, []byte("rest of stream"), resp.Content)
	})
}
