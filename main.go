/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/testbed"
)

const configFile = "ember.toml"

func loadConfig() *engine.ApplicationConfig {
	config := engine.DefaultApplicationConfig()
	if _, err := os.Stat(configFile); err == nil {
		c, err := engine.LoadApplicationConfig(configFile)
		if err != nil {
			core.LogFatal("%s", err)
		}
		config = c
	}
	if runtime.GOOS == "js" {
		// no file system to watch in the browser
		config.AssetDir = ""
	} else if _, err := os.Stat(config.AssetDir); config.AssetDir != "" && err != nil {
		core.LogWarn("Asset directory '%s' not found, running without it.", config.AssetDir)
		config.AssetDir = ""
	}
	return config
}

func main() {
	e, err := engine.New(testbed.NewTestGame(), loadConfig())
	if err != nil {
		core.LogFatal("%s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogError("failed to initialize the engine: %s", err)
		_ = e.Shutdown()
		os.Exit(1)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// the window must be torn down by the thread running the loop, so the
	// signal only ends the loop
	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
