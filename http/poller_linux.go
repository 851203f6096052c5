//go:build linux

package http

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is only ever touched by the event loop goroutine.
type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller() (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("http: epoll_create1: %w", err)
	}
	return &epollPoller{epfd: epfd, events: make([]unix.EpollEvent, 128)}, nil
}

// AddListener registers the listener level-triggered so a partially drained
// backlog is reported again.
func (p *epollPoller) AddListener(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLET, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Wait(ready []int, timeout time.Duration) (int, error) {
	limit := min(len(ready), len(p.events))
	n, err := unix.EpollWait(p.epfd, p.events[:limit], int(timeout.Milliseconds()))
	if errors.Is(err, unix.EINTR) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		ready[i] = int(p.events[i].Fd)
	}
	return n, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
