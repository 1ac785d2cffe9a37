//go:build linux

package transfer

import (
	"io"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// sendFile streams size bytes of f to conn, using sendfile(2) when conn
// is backed by a raw TCP socket and falling back to io.Copy otherwise
// (e.g. TLS-wrapped or in-process test connections).
func sendFile(conn net.Conn, f *os.File, size int64) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		_, err := io.CopyN(conn, f, size)
		return err
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		_, err := io.CopyN(conn, f, size)
		return err
	}

	remaining := size
	var sendErr error
	controlErr := rawConn.Control(func(fd uintptr) {
		off := int64(0)
		for remaining > 0 {
			n, err := unix.Sendfile(int(fd), int(f.Fd()), &off, int(remaining))
			if n > 0 {
				remaining -= int64(n)
			}
			if err != nil {
				if err == unix.EAGAIN || err == unix.EINTR {
					continue
				}
				sendErr = err
				return
			}
			if n == 0 {
				break
			}
		}
	})
	if controlErr != nil {
		return controlErr
	}
	if sendErr != nil {
		return sendErr
	}
	if remaining > 0 {
		// Sendfile stalled (non-blocking socket, partial send); finish
		// with a plain copy of whatever is left.
		if _, err := f.Seek(size-remaining, io.SeekStart); err != nil {
			return err
		}
		_, err := io.CopyN(conn, f, remaining)
		return err
	}
	return nil
}
