/*
This is an example of application that will use the
engine package to render a spinning model
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-deferred/engine"
	"github.com/spaghettifunk/anima-deferred/testbed"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the application config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func run(configPath string) error {
	config, err := engine.LoadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	e, err := engine.New(testbed.NewTestGame(config).Game)
	if err != nil {
		return err
	}
	defer func() {
		_ = e.Shutdown()
	}()

	if err := e.Initialize(); err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go stopOnSignal(sigCh, done, e.Stop)

	return e.Run()
}

// stopOnSignal calls stop on the first signal and returns, or returns when
// done closes.
func stopOnSignal(sigCh <-chan os.Signal, done <-chan struct{}, stop func()) {
	select {
	case <-sigCh:
		stop()
	case <-done:
	}
}
