// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closeFailer struct {
	*strings.Reader
	err error
}

func (c closeFailer) Close() error {
	return c.err
}

func TestSource_Apply(t *testing.T) {
	t.Run("will return a format specific error", func(t *testing.T) {
		t.Run("if the content is invalid JSON", func(t *testing.T) {
			err := FromJson(strings.NewReader(`{"hello":`)).Apply(make(Map))

			var ierr InvalidJsonError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.Error(t, ierr.Unwrap()) {
				return
			}
		})

		t.Run("if the content is invalid YAML", func(t *testing.T) {
			err := FromYaml(strings.NewReader("hello: [world")).Apply(make(Map))

			var ierr InvalidYamlError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
		})

		t.Run("if the content is invalid TOML", func(t *testing.T) {
			err := FromToml(strings.NewReader("hello = ")).Apply(make(Map))

			var ierr InvalidTomlError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
		})
	})

	t.Run("will return the close error", func(t *testing.T) {
		t.Run("if the reader fails to close", func(t *testing.T) {
			closeErr := errors.New("failed to close")
			r := closeFailer{Reader: strings.NewReader(`{"hello": "world"}`), err: closeErr}

			m := make(Map)
			err := FromJson(r).Apply(m)
			if !assert.ErrorIs(t, err, closeErr) {
				return
			}
			if !assert.Equal(t, "world", m["hello"]) {
				return
			}
		})
	})

	t.Run("will apply nested values", func(t *testing.T) {
		testCases := []struct {
			Name   string
			Source Source
		}{
			{Name: "if the source is JSON", Source: FromJson(strings.NewReader(`{"cors": {"origins": "*"}}`))},
			{Name: "if the source is YAML", Source: FromYaml(strings.NewReader("cors:\n  origins: \"*\""))},
			{Name: "if the source is TOML", Source: FromToml(strings.NewReader("[cors]\norigins = \"*\""))},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				m := make(Map)
				err := testCase.Source.Apply(m)
				if !assert.Nil(t, err) {
					return
				}
				if !assert.Equal(t, Map{"cors": map[string]any{"origins": "*"}}, m) {
					return
				}
			})
		}
	})
}
