// Package listener owns the HTTP server lifecycle for the webhook API.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Listener struct {
	log             *zap.Logger
	srv             *http.Server
	shutdownTimeout time.Duration
	ready           chan string
}

func New(addr string, h http.Handler, log *zap.Logger) *Listener {
	return &Listener{
		log: log,
		srv: &http.Server{
			Addr:         addr,
			Handler:      h,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 3 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
		ready:           make(chan string, 1),
	}
}

// Ready yields the bound address once the listener accepts connections.
func (l *Listener) Ready() <-chan string {
	return l.ready
}

// Serve accepts connections until ctx is cancelled, then shuts the server
// down gracefully and returns ctx.Err(). Requests still running after the
// shutdown timeout are abandoned.
func (l *Listener) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.srv.Addr, err)
	}
	l.log.Info("HTTP server started", zap.String("addr", ln.Addr().String()))
	l.ready <- ln.Addr().String()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- l.srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
		defer cancel()
		if err := l.srv.Shutdown(shutdownCtx); err != nil {
			l.log.Warn("http server shutdown incomplete", zap.Error(err))
			_ = l.srv.Close()
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
