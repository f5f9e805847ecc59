package workers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// HTTPServerWorker serves the router until the context is canceled.
// Requests inherit the worker context, so long-lived connections end with it.
type HTTPServerWorker struct {
	log     *slog.Logger
	addr    string
	handler http.Handler
	ready   chan net.Addr
	drain   func(ctx context.Context) error
}

func NewHTTPServerWorker(log *slog.Logger, addr string, handler http.Handler) *HTTPServerWorker {
	return &HTTPServerWorker{log: log, addr: addr, handler: handler, ready: make(chan net.Addr, 1)}
}

// WithDrain registers a wait run after Shutdown, bounded by the same timeout.
// Hijacked connections such as websockets are only awaited through it.
func (w *HTTPServerWorker) WithDrain(drain func(ctx context.Context) error) *HTTPServerWorker {
	w.drain = drain
	return w
}

// Ready yields the bound address once the listener is open.
func (w *HTTPServerWorker) Ready() <-chan net.Addr {
	return w.ready
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           w.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	w.log.Info("HTTP server listening", "addr", listener.Addr().String())
	select {
	case w.ready <- listener.Addr():
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			w.log.Warn("HTTP server shutdown", "error", err)
		}
		if w.drain != nil {
			if err := w.drain(shutdownCtx); err != nil {
				w.log.Warn("HTTP server drain", "error", err)
			}
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		w.log.Info("HTTP server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
