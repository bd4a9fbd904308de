// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"embed"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/z5labs/pageboy"
	"github.com/z5labs/pageboy/codec"
	"github.com/z5labs/pageboy/config"
	"github.com/z5labs/pageboy/config/configtmpl"
	"github.com/z5labs/pageboy/conn"
	"github.com/z5labs/pageboy/executor"
	"github.com/z5labs/pageboy/message"
	"github.com/z5labs/pageboy/pkg/health"
	"github.com/z5labs/pageboy/pkg/maskslog"
	"github.com/z5labs/pageboy/pkg/otelconfig"
	"github.com/z5labs/pageboy/pkg/otelslog"
	"github.com/z5labs/pageboy/router"
	"github.com/z5labs/pageboy/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
)

//go:embed config.yaml
var configDir embed.FS

type limitsConfig struct {
	MaxHeader  int   `config:"max_header"`
	MaxBody    int64 `config:"max_body"`
	MaxURI     int   `config:"max_uri"`
	MaxRequest int   `config:"max_request"`
}

func (c limitsConfig) conn() conn.Limits {
	return conn.Limits{
		Codec: codec.Limits{
			MaxHeader: c.MaxHeader,
			MaxBody:   c.MaxBody,
			MaxURI:    c.MaxURI,
		},
		MaxRequest: c.MaxRequest,
	}
}

type serveConfig struct {
	Addr     string           `config:"addr"`
	Executor executor.Config  `config:"executor"`
	CORS     string           `config:"cors"`
	Files    []string         `config:"files"`
	Limits   limitsConfig     `config:"limits"`
	Drain    time.Duration    `config:"drain_timeout"`
	Health   health.Endpoints `config:"health"`
	Logging  struct {
		Level slog.Level `config:"level"`
	} `config:"logging"`
	OTel otelconfig.Config `config:"otel"`
}

func defaultConfig() config.Source {
	return config.FromYaml(
		config.RenderTextTemplate(
			config.NewFileReader(configDir, "config.yaml"),
			configtmpl.Funcs()...,
		),
	)
}

func fileConfig(path *string) config.Source {
	return config.SourceFunc(func(store config.Store) error {
		if *path == "" {
			return nil
		}
		src := config.FromFile(os.DirFS(filepath.Dir(*path)), filepath.Base(*path))
		return src.Apply(store)
	})
}

// serveSources are applied in order: the embedded defaults, the --config
// file, PAGEBOY_ prefixed env vars and, lastly, explicitly set flags.
func serveSources(v *viper.Viper, path *string) []config.Source {
	return []config.Source{
		defaultConfig(),
		fileConfig(path),
		config.FromEnv(config.EnvPrefix("PAGEBOY_")),
		flagSource(v),
	}
}

func newServeCommand() *cobra.Command {
	v := viper.New()
	var path string

	opts := []pageboy.Option{
		pageboy.Name("serve"),
		pageboy.Hooks(pageboy.ManageOTel(initOTel)),
		pageboy.WithRuntimeBuilderFunc(buildServer(os.Stderr)),
	}
	for _, src := range serveSources(v, &path) {
		opts = append(opts, pageboy.Config(src))
	}

	cmd := pageboy.New(opts...).Command()
	cmd.Short = "Serve HTTP/1.1 requests"

	fs := cmd.Flags()
	fs.StringVarP(&path, "config", "c", "", "yaml, json or toml config file")
	fs.String("addr", ":8080", "address to listen on")
	fs.String("executor", "threaded", "one of serial, threaded, pool or cooperative")
	fs.Int("workers", 0, "pool size or cooperative task limit")
	fs.String("cors", "", "CORS policy, e.g. origin=https://example.com;credentials=true")
	fs.StringSlice("files", nil, "directories to serve static files from")
	fs.String("log-level", "INFO", "minimum log level")

	cobra.CheckErr(bindFlags(v, fs, map[string]string{
		"addr":      "addr",
		"executor":  "executor.model",
		"workers":   "executor.workers",
		"cors":      "cors",
		"files":     "files",
		"log-level": "logging.level",
	}))
	return cmd
}

func initOTel(ctx context.Context) (otelconfig.Initializer, error) {
	var cfg serveConfig
	err := pageboy.ConfigFromContext(ctx).Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}
	return otelconfig.FromConfig(cfg.OTel)
}

func newLogHandler(w io.Writer, lvl slog.Level) slog.Handler {
	return otelslog.NewHandler(
		maskslog.NewHandler(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				AddSource: true,
				Level:     lvl,
			}),
			maskslog.Headers("authorization", "cookie"),
		),
	)
}

func buildServer(logOut io.Writer) func(context.Context) (pageboy.Runtime, error) {
	return func(ctx context.Context) (pageboy.Runtime, error) {
		var cfg serveConfig
		err := pageboy.ConfigFromContext(ctx).Unmarshal(&cfg)
		if err != nil {
			return nil, err
		}

		exec, err := executor.New(cfg.Executor)
		if err != nil {
			return nil, err
		}

		s, err := server.New(
			cfg.Addr,
			server.Executor(exec),
			server.LogHandler(newLogHandler(logOut, cfg.Logging.Level)),
			server.Limits(cfg.Limits.conn()),
			server.DrainTimeout(cfg.Drain),
			server.HealthEndpoints(cfg.Health),
			server.Tracer(otel.Tracer("github.com/z5labs/pageboy/cmd/pageboy")),
		)
		if err != nil {
			return nil, err
		}

		err = configure(s, cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}
}

func configure(s *server.Server, cfg serveConfig) error {
	if cfg.CORS != "" {
		err := s.SetCORSString(cfg.CORS)
		if err != nil {
			return err
		}
	}
	for _, dir := range cfg.Files {
		err := s.AddFilesSource(dir)
		if err != nil {
			return err
		}
	}
	return registerRoutes(s)
}

func registerRoutes(s *server.Server) error {
	routes := []struct {
		path    string
		method  message.Method
		handler router.HandlerFunc
	}{
		{path: "/", method: message.MethodGet, handler: home},
		{path: "/echo", method: message.MethodPost, handler: echo},
		{path: "/hello/{name}", method: message.MethodGet, handler: hello},
	}
	for _, r := range routes {
		err := s.AddRoute(r.path, r.method, r.handler)
		if err != nil {
			return err
		}
	}
	return nil
}
