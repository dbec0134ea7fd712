package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/app"
	kernel "github.com/km-arc/go-ioc/framework/app"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/graph"
)

func main() {
	application, err := kernel.New() // loads .env automatically
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = application.Logger.Sync() }()

	if err := run(application); err != nil {
		application.Logger.Error("application stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(application *kernel.Application) error {
	if err := application.RegisterProvider(&app.ServiceProvider{}); err != nil {
		return err
	}
	if err := application.Boot(); err != nil {
		return err
	}

	// ── Dependency graph ─────────────────────────────────────────────────────

	out, err := graph.SimpleGraph(application.Registry())
	if err != nil {
		return err
	}
	fmt.Print(out)

	// ── Resolve and raise an event ───────────────────────────────────────────

	reporter, err := container.Resolve[*app.Reporter](application.Container, "reporter")
	if err != nil {
		return err
	}
	if err := reporter.Report("status", "ops@example.com"); err != nil {
		return err
	}

	audit, err := container.Resolve[*app.AuditLog](application.Container, "audit")
	if err != nil {
		return err
	}
	application.Logger.Info("report sent",
		zap.String("mailer", reporter.Mailer.Addr()),
		zap.Strings("audit", audit.Entries()),
	)

	// ── Inspector ────────────────────────────────────────────────────────────

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}
