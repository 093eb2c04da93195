// ABOUTME: CLI entrypoint for the vitrine preview/execution server.
// ABOUTME: Wires configuration, the history store, the HTTP server, and signal handling.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitrine-labs/vitrine/web"
)

var version = "dev"

// cliConfig holds configuration parsed from flags.
type cliConfig struct {
	configFile  string
	bind        string
	showVersion bool
}

func main() {
	loadDotEnvAuto()
	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("vitrine %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags.
func parseFlags() cliConfig {
	var cfg cliConfig

	fs := flag.NewFlagSet("vitrine", flag.ContinueOnError)
	fs.StringVar(&cfg.configFile, "config", "", "Path to YAML config file")
	fs.StringVar(&cfg.bind, "bind", "", "Listen address (overrides config)")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vitrine [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	return cfg
}

// run starts the server and blocks until shutdown.
// Returns an exit code: 0 for success, 1 for failure.
func run(cli cliConfig) int {
	cfg, err := web.LoadConfig(cli.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if cli.bind != "" {
		cfg.Bind = cli.bind
	}

	srv, err := web.NewServer(cfg, web.Deps{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer srv.Close()

	// Set up context with signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	httpServer := &http.Server{
		Addr:    cfg.Bind,
		Handler: srv,
	}
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	fmt.Fprintf(os.Stderr, "listening on %s\n", cfg.Bind)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
