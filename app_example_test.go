// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pageboy

import (
	"context"
	"fmt"

	"github.com/z5labs/pageboy/config"
)

func ExampleApp_Run() {
	app := New(
		Name("example"),
		Config(config.Map{"greeting": "hello, world"}),
		WithRuntimeBuilderFunc(func(ctx context.Context) (Runtime, error) {
			var cfg struct {
				Greeting string `config:"greeting"`
			}
			err := ConfigFromContext(ctx).Unmarshal(&cfg)
			if err != nil {
				return nil, err
			}

			rt := RuntimeFunc(func(ctx context.Context) error {
				fmt.Println(cfg.Greeting)
				return nil
			})
			return rt, nil
		}),
	)

	err := app.Run()
	if err != nil {
		fmt.Println(err)
		return
	}
	//Output: hello, world
}

func ExampleRun() {
	type myConfig struct {
		Name string `config:"name"`
	}

	b := AppBuilderFunc[myConfig](func(ctx context.Context, cfg myConfig) (Runtime, error) {
		rt := RuntimeFunc(func(ctx context.Context) error {
			fmt.Println("hello,", cfg.Name)
			return nil
		})
		return rt, nil
	})

	err := Run[myConfig](context.Background(), b, config.Map{"name": "pageboy"})
	if err != nil {
		fmt.Println(err)
		return
	}
	//Output: hello, pageboy
}
