//go:build !linux

package transfer

import (
	"io"
	"net"
	"os"
)

// sendFile streams size bytes of f to conn with a plain copy; sendfile(2)
// is a Linux-only syscall.
func sendFile(conn net.Conn, f *os.File, size int64) error {
	_, err := io.CopyN(conn, f, size)
	return err
}
