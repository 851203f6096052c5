//go:build unix

package http

import (
	"errors"
	"io"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Conn is an accepted socket. The event loop owns it while it is registered for
// readiness; after that it belongs to the worker serving it.
type Conn struct {
	fd     int
	closed atomic.Bool
}

func newConn(fd int) *Conn {
	return &Conn{fd: fd}
}

func (c *Conn) Fd() int {
	return c.fd
}

func (c *Conn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(c.fd, p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(c.fd, p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

func (c *Conn) SetBlocking() error {
	return unix.SetNonblock(c.fd, false)
}

// Close releases the descriptor once. Later calls are no-ops so a recycled
// descriptor number is never closed by mistake.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(c.fd)
}
