//go:build unix

package http

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Listener is a non-blocking IPv4 listening socket.
type Listener struct {
	fd   int
	addr *net.TCPAddr
}

// Listen binds a TCP socket on addr ("host:port", empty host for all
// interfaces) with SO_REUSEADDR and a backlog of ListenBacklog.
func Listen(addr string) (*Listener, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("http: listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("http: listen port %q is invalid", portStr)
	}

	sa := &unix.SockaddrInet4{Port: port}
	if host != "" {
		ip := net.ParseIP(host).To4()
		if ip == nil {
			return nil, fmt.Errorf("http: listen host %q is not an IPv4 address", host)
		}
		copy(sa.Addr[:], ip)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("http: socket: %w", err)
	}
	unix.CloseOnExec(fd)

	if err := setupListener(fd, sa); err != nil {
		unix.Close(fd)
		return nil, err
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("http: getsockname: %w", err)
	}
	inet, _ := bound.(*unix.SockaddrInet4)
	if inet == nil {
		inet = sa
	}

	return &Listener{
		fd:   fd,
		addr: &net.TCPAddr{IP: net.IP(inet.Addr[:]).To16(), Port: inet.Port},
	}, nil
}

func setupListener(fd int, sa *unix.SockaddrInet4) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("http: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fmt.Errorf("http: bind: %w", err)
	}
	if err := unix.Listen(fd, ListenBacklog); err != nil {
		return fmt.Errorf("http: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("http: set non-blocking: %w", err)
	}
	return nil
}

func (l *Listener) Addr() net.Addr {
	return l.addr
}

func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

// accept returns a non-blocking connection, or errWouldBlock once the backlog
// is drained.
func (l *Listener) accept() (*Conn, error) {
	for {
		fd, _, err := unix.Accept(l.fd)
		switch {
		case err == nil:
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return nil, errWouldBlock
		default:
			return nil, err
		}

		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("http: set non-blocking: %w", err)
		}
		return newConn(fd), nil
	}
}

var errWouldBlock = errors.New("http: accept would block")
