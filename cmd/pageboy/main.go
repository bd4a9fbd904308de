// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command pageboy serves HTTP/1.1 requests with a configurable executor
// and probes the health endpoints of a running instance.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pageboy",
		Short: "A small HTTP/1.1 server",
	}
	cmd.AddCommand(
		newServeCommand(),
		newProbeCommand(),
	)
	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	if err != nil {
		cancel()
		os.Exit(1)
	}
}
