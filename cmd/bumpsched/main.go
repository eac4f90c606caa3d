// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sleepyshows/bumpsched/cmd/bumpsched/app"
	"github.com/sleepyshows/bumpsched/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := app.LoadConfig(os.Args, cwd)
	if err != nil {
		if strings.Contains(err.Error(), "help requested") {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err.Error())
		os.Exit(1)
	}

	if err := logging.InitSlog(cfg.LogLevel, cfg.LogFormat); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %s\n", err.Error())
		os.Exit(1)
	}

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	startIssue := make(chan struct{}, 1)
	stopServer := make(chan struct{}, 1)

	ctx, cancelBkg := context.WithCancel(context.Background())

	go func() {
		select {
		case <-startIssue:
		case <-stopSignal:
			// Restore default disposition so a second signal kills the
			// process outright if the graceful shutdown hangs.
			signal.Stop(stopSignal)
		}
		cancelBkg()
		stopServer <- struct{}{}
	}()

	server, err := app.SetupServer(ctx, cfg)
	if err != nil {
		_, prErr := fmt.Fprintf(os.Stderr, "Error setting up server: %s\n", err.Error())
		if prErr != nil {
			fmt.Print(prErr)
		}
		return 1
	}

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", server.Cfg.Port), Handler: server.Router}
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.Default().Error(err.Error())
			exitCode = 1
			startIssue <- struct{}{}
		}
	}()

	<-stopServer // Wait here for stop signal

	// Drain in-flight requests before the final flush so no exposure
	// delta can land after the last save.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Default().Error("server shutdown", "err", err)
	}
	server.Flush()
	slog.Default().Info("server stopped")

	return exitCode
}
