// Command dropgate serves a directory tree over HTTP/1.1, optionally
// accepting multipart uploads back into it. Connection-state changes read
// from the registry the reactor publishes to are logged to stdout when
// --headless is set and discarded otherwise; no interactive terminal
// dashboard is included (spec.md §6).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/albertbausili/dropgate/internal/config"
	"github.com/albertbausili/dropgate/internal/dashboard"
	"github.com/albertbausili/dropgate/internal/httpdate"
	"github.com/albertbausili/dropgate/internal/reactor"
	"github.com/albertbausili/dropgate/internal/registry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.ParseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dropgate:", err)
		return 2
	}

	stopDateTicker := httpdate.StartTicker(time.Second)
	defer stopDateTicker()

	metrics := registry.NewMetrics(prometheus.DefaultRegisterer)
	reg := registry.New(metrics)
	reg.SetPaused(cfg.StartDisabled)

	r := reactor.New(&cfg, reg)

	var dash dashboard.Dashboard = dashboard.NewHeadless(cfg.Logger)
	stop := make(chan struct{})
	go dashboard.Run(dash, reg, cfg.UIRefreshRate, stop)

	cfg.Logger.Printf("dropgate serving %s on %s (upload=%v, dirs=%v)",
		cfg.ServeRoot, cfg.Addr(), cfg.UploadEnabled, !cfg.DisableDirs)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		close(stop)
		if err != nil {
			fmt.Fprintln(os.Stderr, "dropgate:", err)
			return 1
		}
		return 0
	case <-sigCh:
		reg.PostIntent(registry.IntentShutdown)
		close(stop)
		if err := <-errCh; err != nil {
			fmt.Fprintln(os.Stderr, "dropgate:", err)
			return 1
		}
		return 0
	}
}
