package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autopilot/internal/platform"
)

func main() {
	appCfg := platform.LoadAppConfig()

	platform.InitMetrics()
	platform.InitLogger(appCfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := platform.InitTracing(ctx, "autopilot")
	if err != nil {
		slog.Error("Failed to init tracing", "err", err)
		os.Exit(1)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("Tracing shutdown", "err", err)
		}
	}()

	// --- Run embedded NATS server ---
	nc, ns, natErrCh, err := platform.RunEmbeddedServer(ctx, *appCfg.NatsCfg)
	if err != nil {
		slog.Error("Failed to start embedded server", "err", err)
		os.Exit(1)
	}
	defer ns.Shutdown()
	defer nc.Close()

	svc, err := platform.NewServices(ctx, nc)
	if err != nil {
		slog.Error("Failed to prepare layout services", "err", err)
		cancel()
		return
	}

	var httpErrCh <-chan error
	if !appCfg.Flags.Headless {
		httpErrCh = platform.RunHTTPServer(ctx, svc, *appCfg.HTTPSrvCfg)
	} else {
		httpErrCh = make(chan error)
	}

	go func() {
		select {
		case err := <-natErrCh:
			slog.Error("Embedded server error", "err", err)
			cancel()
		case err := <-httpErrCh:
			slog.Error("HTTP server error", "err", err)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := platform.Run(ctx, svc); err != nil {
		slog.Error("Layout service stopped", "err", err)
	}
}
