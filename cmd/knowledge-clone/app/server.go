// Package app provides the knowledge clone server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/knowledge-clone/cmd/knowledge-clone/app/options"
	clonesvc "github.com/kart-io/knowledge-clone/internal/clone"
	"github.com/kart-io/knowledge-clone/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `Knowledge Clone

A chat service that answers in the voice of a personal knowledge base.

Each turn:
  - retrieves related passages from the vector store (Pinecone, Milvus or memory)
  - optionally gathers web context
  - composes a prompt weighted by the retrieval settings and asks the chat model
  - shortens long replies for display while keeping the full text

Documents (pdf, doc, docx, txt, md) are uploaded over HTTP or dropped into a
watched directory.`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(clonesvc.Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
