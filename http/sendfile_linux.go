//go:build linux

package http

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// sendfile(2) caps a single call at a little under 2GB.
const maxSendfileChunk = 1 << 30

type fdWriter interface {
	Fd() int
}

// sendFile copies length bytes from file into w inside the kernel. handled is
// false when w exposes no socket, in which case nothing has been written.
func sendFile(w io.Writer, file *os.File, offset, length int64) (written int64, handled bool, err error) {
	dst, ok := w.(fdWriter)
	if !ok {
		return 0, false, nil
	}
	written, err = sendfileLoop(dst.Fd(), int(file.Fd()), offset, length)
	return written, true, err
}

// sendfileLoop drives a blocking destination descriptor.
func sendfileLoop(dst, src int, offset, length int64) (int64, error) {
	var written int64
	for written < length {
		pos := offset + written
		n, err := unix.Sendfile(dst, src, &pos, int(min(length-written, maxSendfileChunk)))
		if n > 0 {
			written += int64(n)
		}
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return written, err
		}
		if n == 0 {
			// Source hit EOF early.
			break
		}
	}
	return written, nil
}
