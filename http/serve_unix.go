//go:build unix

package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// poller is a readiness set owned by a single goroutine.
type poller interface {
	AddListener(fd int) error
	Add(fd int) error
	Remove(fd int) error
	Wait(ready []int, timeout time.Duration) (int, error)
	Close() error
}

var serviceUnavailableBody = []byte(`{"error":"Service Unavailable"}`)

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := Listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the event loop on ln until ctx ends, then closes ln, drops the
// connections that never became readable and drains the worker pool within
// ShutdownTimeout. Serve takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln *Listener) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p, err := newPoller()
	if err != nil {
		ln.Close()
		return err
	}
	defer p.Close()

	if err := p.AddListener(ln.fd); err != nil {
		ln.Close()
		return fmt.Errorf("http: registering listener: %w", err)
	}

	pool := NewWorkerPool(s.Workers, s.QueueSize, s.Logger)
	pending := make(map[int]*Conn)

	s.Logger.Info("listening",
		slog.String("server", s.Name),
		slog.String("addr", ln.Addr().String()),
		slog.Int("workers", max(s.Workers, 1)),
	)

	var loopErr error
	ready := make([]int, 128)
	for ctx.Err() == nil {
		n, err := p.Wait(ready, pollTimeout)
		if err != nil {
			loopErr = fmt.Errorf("http: waiting for readiness: %w", err)
			break
		}

		for _, fd := range ready[:n] {
			if fd == ln.fd {
				s.acceptAll(ctx, ln, p, pending)
				continue
			}

			conn, found := pending[fd]
			if !found {
				continue
			}
			delete(pending, fd)
			_ = p.Remove(fd)

			if err := conn.SetBlocking(); err != nil {
				s.Logger.Warn("switching connection to blocking mode failed", slog.Any("error", err))
				conn.Close()
				continue
			}
			if err := pool.Submit(connJob{server: s, conn: conn}); err != nil {
				s.reject(ctx, conn, err)
			}
		}
	}

	s.Logger.Info("shutting down", slog.String("server", s.Name), slog.Int("pending_connections", len(pending)))

	ln.Close()
	for fd, conn := range pending {
		_ = p.Remove(fd)
		conn.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.Logger.Warn("worker pool did not drain in time", slog.Any("error", err))
	}

	return loopErr
}

func (s *Server) acceptAll(ctx context.Context, ln *Listener, p poller, pending map[int]*Conn) {
	for {
		conn, err := ln.accept()
		if errors.Is(err, errWouldBlock) {
			return
		}
		if err != nil {
			s.Logger.Warn("accept failed", slog.Any("error", err))
			return
		}

		if err := p.Add(conn.fd); err != nil {
			s.Logger.Warn("registering connection failed", slog.Any("error", err))
			conn.Close()
			continue
		}
		pending[conn.fd] = conn
		s.metrics.accepted.Add(ctx, 1)
	}
}

// reject answers a connection the pool refused with a 503 and closes it.
func (s *Server) reject(ctx context.Context, conn *Conn, cause error) {
	defer conn.Close()

	s.metrics.rejected.Add(ctx, 1)
	s.Logger.Warn("rejecting connection", slog.Any("error", cause))

	if errors.Is(cause, ErrQueueFull) {
		_ = WriteResponse(conn, NewJSONResponse(StatusServiceUnavailable, serviceUnavailableBody))
	}
}
