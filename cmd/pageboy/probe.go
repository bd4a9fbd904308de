// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/z5labs/pageboy"
	"github.com/z5labs/pageboy/config"
	"github.com/z5labs/pageboy/pkg/health"
	"github.com/z5labs/pageboy/pkg/httpclient"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type probeConfig struct {
	URL      string           `config:"url"`
	Probe    string           `config:"probe"`
	Timeout  time.Duration    `config:"timeout"`
	Retries  int              `config:"retries"`
	Health   health.Endpoints `config:"health"`
	LogLevel slog.Level       `config:"log_level"`
}

// UnknownProbeError is returned for a probe other than startup,
// liveness or readiness.
type UnknownProbeError struct {
	Probe string
}

// Error implements the [builtin.error] interface.
func (e UnknownProbeError) Error() string {
	return fmt.Sprintf("unknown probe: %s", e.Probe)
}

func (c probeConfig) endpoint() (string, error) {
	var path string
	switch c.Probe {
	case "startup":
		path = c.Health.Startup
	case "liveness":
		path = c.Health.Liveness
	case "readiness":
		path = c.Health.Readiness
	default:
		return "", UnknownProbeError{Probe: c.Probe}
	}
	return strings.TrimSuffix(c.URL, "/") + path, nil
}

func probeDefaults() config.Map {
	e := health.DefaultEndpoints()
	return config.Map{
		"url":       "http://localhost:8080",
		"probe":     "readiness",
		"timeout":   "5s",
		"retries":   2,
		"log_level": "WARN",
		"health": map[string]any{
			"startup":   e.Startup,
			"liveness":  e.Liveness,
			"readiness": e.Readiness,
		},
	}
}

func buildProbe(out io.Writer) pageboy.AppBuilderFunc[probeConfig] {
	return func(ctx context.Context, cfg probeConfig) (pageboy.Runtime, error) {
		url, err := cfg.endpoint()
		if err != nil {
			return nil, err
		}

		client := httpclient.New(
			httpclient.Name("pageboy-probe"),
			httpclient.Timeout(cfg.Timeout),
			httpclient.Retry(cfg.Retries, 50*time.Millisecond, time.Second),
			httpclient.LogHandler(newLogHandler(out, cfg.LogLevel)),
		)

		rt := pageboy.RuntimeFunc(func(ctx context.Context) error {
			err := httpclient.Probe(ctx, client, url)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s ok\n", cfg.Probe)
			return nil
		})
		return rt, nil
	}
}

func newProbeCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "probe [startup|liveness|readiness]",
		Short:        "Probe a health endpoint of a running server",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs := []config.Source{
				probeDefaults(),
				config.FromEnv(config.EnvPrefix("PAGEBOY_PROBE_")),
				flagSource(v),
			}
			if len(args) > 0 {
				srcs = append(srcs, config.Map{"probe": args[0]})
			}
			return pageboy.Run[probeConfig](cmd.Context(), buildProbe(cmd.OutOrStdout()), srcs...)
		},
	}

	fs := cmd.Flags()
	fs.String("url", "http://localhost:8080", "base url of the server")
	fs.Duration("timeout", 5*time.Second, "timeout of each attempt")
	fs.Int("retries", 2, "retries after a failed attempt")

	cobra.CheckErr(bindFlags(v, fs, map[string]string{
		"url":     "url",
		"timeout": "timeout",
		"retries": "retries",
	}))
	return cmd
}
