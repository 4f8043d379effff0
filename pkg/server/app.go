package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "BubbleScope/pkg/http"
	applogger "BubbleScope/pkg/logger"
)

// Closer releases one resource on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the application lifecycle: serve until a signal, then
// stop the HTTP server and release resources in registration order.
type App struct {
	log      *applogger.Logger
	http     *xhttp.Server
	closers  []Closer
	shutdown time.Duration
}

func New(l *applogger.Logger, srv *xhttp.Server, closers ...Closer) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{log: l, http: srv, closers: closers, shutdown: 15 * time.Second}
	if srv != nil {
		a.shutdown = srv.ShutdownTimeout()
	}
	return a
}

// OnShutdown registers more resources to release.
func (a *App) OnShutdown(c ...Closer) { a.closers = append(a.closers, c...) }

// Run blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if a.http != nil {
		if err := a.http.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.stop()
}

func (a *App) stop() error {
	var errs []error

	if a.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.shutdown)
		if err := a.http.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
		cancel()
	}

	for _, c := range a.closers {
		if c.Close == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
