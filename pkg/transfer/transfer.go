// Package transfer implements the minimal length-prefixed protocol that
// installs a whole segment file on a follower's immutable store, the
// concrete transport behind ImmutableStore.AppendFile.
package transfer

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/journalkeeper-go/journal/internal/logx"
)

// frame on the wire: [16-byte session uuid][2-byte name length][name]
// [8-byte file size][file bytes].

// SendSegment streams the segment file at path over conn, tagging the
// session with a fresh uuid for log correlation on both ends.
func SendSegment(conn net.Conn, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("transfer: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("transfer: stat %s: %w", path, err)
	}

	name := filepath.Base(path)
	sessionID := uuid.New()
	logx.Debug("transfer: sending segment %s (%d bytes), session=%s", name, info.Size(), sessionID)

	header := make([]byte, 16+2+len(name)+8)
	copy(header[:16], sessionID[:])
	binary.BigEndian.PutUint16(header[16:18], uint16(len(name)))
	copy(header[18:18+len(name)], name)
	binary.BigEndian.PutUint64(header[18+len(name):], uint64(info.Size()))

	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("transfer: write header: %w", err)
	}

	if err := sendFile(conn, f, info.Size()); err != nil {
		return fmt.Errorf("transfer: send %s: %w", name, err)
	}
	logx.Debug("transfer: sent segment %s, session=%s", name, sessionID)
	return nil
}

// ReceiveSegment reads one SendSegment frame from conn and writes it into
// destDir under its original name, returning the installed file's path.
func ReceiveSegment(conn net.Conn, destDir string) (string, error) {
	var sessionID uuid.UUID
	if _, err := io.ReadFull(conn, sessionID[:]); err != nil {
		return "", fmt.Errorf("transfer: read session id: %w", err)
	}

	var nameLen [2]byte
	if _, err := io.ReadFull(conn, nameLen[:]); err != nil {
		return "", fmt.Errorf("transfer: read name length: %w", err)
	}
	name := make([]byte, binary.BigEndian.Uint16(nameLen[:]))
	if _, err := io.ReadFull(conn, name); err != nil {
		return "", fmt.Errorf("transfer: read name: %w", err)
	}

	var sizeBuf [8]byte
	if _, err := io.ReadFull(conn, sizeBuf[:]); err != nil {
		return "", fmt.Errorf("transfer: read size: %w", err)
	}
	size := int64(binary.BigEndian.Uint64(sizeBuf[:]))

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("transfer: create dest dir %s: %w", destDir, err)
	}
	destPath := filepath.Join(destDir, string(name))
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("transfer: create %s: %w", destPath, err)
	}
	defer out.Close()

	logx.Debug("transfer: receiving segment %s (%d bytes), session=%s", name, size, sessionID)
	if _, err := io.CopyN(out, conn, size); err != nil {
		return "", fmt.Errorf("transfer: receive %s: %w", name, err)
	}
	if err := out.Sync(); err != nil {
		return "", fmt.Errorf("transfer: fsync %s: %w", destPath, err)
	}
	logx.Debug("transfer: received segment %s, session=%s", name, sessionID)
	return destPath, nil
}
