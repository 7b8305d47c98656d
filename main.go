/*
This is an example of application that will use the
engine package to render a scene
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/testbed"
)

func main() {
	configPath := flag.String("config", "ember.toml", "path to the TOML configuration")
	flag.Parse()

	core.WithSession(uuid.NewString())

	if err := run(*configPath); err != nil {
		core.LogError("%s", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	config, err := core.LoadConfig(configPath)
	if err != nil {
		return err
	}
	level, err := core.ParseLogLevel(config.Application.LogLevel)
	if err != nil {
		return err
	}
	core.SetLogLevel(level)

	// signals end the loop at the next tick; the window stays on this thread
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	tb := testbed.NewTestGame(config)
	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}
	if err := e.Initialize(ctx); err != nil {
		return err
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
