//go:build unix && !linux

package http

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller falls back to poll(2). It is level-triggered, which is fine
// because a connection is deregistered on its first readiness report.
type pollPoller struct {
	fds []unix.PollFd
}

func newPoller() (poller, error) {
	return &pollPoller{}, nil
}

func (p *pollPoller) AddListener(fd int) error {
	return p.Add(fd)
}

func (p *pollPoller) Add(fd int) error {
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	return nil
}

func (p *pollPoller) Remove(fd int) error {
	for i := range p.fds {
		if int(p.fds[i].Fd) == fd {
			p.fds = append(p.fds[:i], p.fds[i+1:]...)
			return nil
		}
	}
	return nil
}

func (p *pollPoller) Wait(ready []int, timeout time.Duration) (int, error) {
	for i := range p.fds {
		p.fds[i].Revents = 0
	}

	_, err := unix.Poll(p.fds, int(timeout.Milliseconds()))
	if errors.Is(err, unix.EINTR) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n := 0
	for i := range p.fds {
		if n == len(ready) {
			break
		}
		if p.fds[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready[n] = int(p.fds[i].Fd)
			n++
		}
	}
	return n, nil
}

func (p *pollPoller) Close() error {
	p.fds = nil
	return nil
}
