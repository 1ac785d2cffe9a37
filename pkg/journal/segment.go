package journal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/journalkeeper-go/journal/pkg/bufferpool"
)

// segment is one physical file holding a contiguous dataSize-byte range of
// the logical journal, starting at position start. It owns a lazily
// loaded in-memory page borrowed from a bufferpool.Pool and tracks
// write/flush positions relative to that page.
//
// Position counters are atomic so readers get a consistent snapshot
// without taking pageMu; pageMu guards the page slice and file handle
// themselves (load, unload, and the actual byte copies).
type segment struct {
	start      int64
	headerSize int
	dataSize   int
	pool       *bufferpool.Pool

	pageMu sync.Mutex
	file   *os.File
	page   []byte // nil when unloaded

	writePos    atomic.Int64
	flushPos    atomic.Int64
	writeClosed atomic.Bool
}

func segmentPath(dir string, start int64) string {
	return filepath.Join(dir, strconv.FormatInt(start, 10))
}

// newSegment creates the in-memory handle for a brand new segment; the
// backing file is created lazily on first load.
func newSegment(start int64, headerSize, dataSize int, pool *bufferpool.Pool) *segment {
	return &segment{start: start, headerSize: headerSize, dataSize: dataSize, pool: pool}
}

func (s *segment) Start() int64    { return s.start }
func (s *segment) DataSize() int   { return s.dataSize }
func (s *segment) WritePos() int64 { return s.writePos.Load() }
func (s *segment) FlushPos() int64 { return s.flushPos.Load() }
func (s *segment) WriteClosed() bool {
	return s.writeClosed.Load()
}
func (s *segment) IsClean() bool { return s.flushPos.Load() == s.writePos.Load() }

func (s *segment) HasPage() bool {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()
	return s.page != nil
}

func (s *segment) Path(dir string) string { return segmentPath(dir, s.start) }

// ensureLoadedLocked opens the file (creating it if absent) and borrows a page
// from the pool if one is not already held. Must be called with pageMu
// held.
func (s *segment) ensureLoadedLocked(dir string) error {
	if s.page != nil {
		return nil
	}
	path := s.Path(dir)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("journal: open segment %s: %w", path, err)
	}
	page := s.pool.Borrow(s.dataSize)

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("journal: stat segment %s: %w", path, err)
	}
	existingData := info.Size() - int64(s.headerSize)
	if existingData > 0 {
		if existingData > int64(s.dataSize) {
			existingData = int64(s.dataSize)
		}
		n, err := f.ReadAt(page[:existingData], int64(s.headerSize))
		if err != nil && n == 0 {
			f.Close()
			return fmt.Errorf("journal: read segment %s: %w", path, err)
		}
		if s.writePos.Load() == 0 {
			s.writePos.Store(existingData)
		}
		if s.flushPos.Load() == 0 {
			s.flushPos.Store(existingData)
		}
	}

	s.file = f
	s.page = page
	return nil
}

// Append writes up to dataSize-writePos bytes from the front of b into
// the page, returning the number of bytes consumed.
func (s *segment) Append(dir string, b []byte) (int, error) {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	if s.writeClosed.Load() {
		return 0, fmt.Errorf("journal: append to closed segment %d", s.start)
	}
	if err := s.ensureLoadedLocked(dir); err != nil {
		return 0, err
	}

	pos := s.writePos.Load()
	room := int64(s.dataSize) - pos
	n := int64(len(b))
	if n > room {
		n = room
	}
	copy(s.page[pos:pos+n], b[:n])
	s.writePos.Store(pos + n)
	if pos+n == int64(s.dataSize) {
		s.writeClosed.Store(true)
	}
	return int(n), nil
}

// Read returns length bytes starting at relPos within the data region,
// transparently loading the page if unloaded.
func (s *segment) Read(dir string, relPos int64, length int) ([]byte, error) {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	if err := s.ensureLoadedLocked(dir); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, s.page[relPos:relPos+int64(length)])
	return out, nil
}

// ReadLong reads an 8-byte big-endian integer at relPos.
func (s *segment) ReadLong(dir string, relPos int64) (int64, error) {
	b, err := s.Read(dir, relPos, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// Flush writes dirty bytes [flushPos, writePos) to the file and advances
// flushPos. It does not fsync.
func (s *segment) Flush(dir string) (int, error) {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	flushPos := s.flushPos.Load()
	writePos := s.writePos.Load()
	if flushPos >= writePos {
		return 0, nil
	}
	if err := s.ensureLoadedLocked(dir); err != nil {
		return 0, err
	}
	n := writePos - flushPos
	if _, err := s.file.WriteAt(s.page[flushPos:writePos], int64(s.headerSize)+flushPos); err != nil {
		return 0, fmt.Errorf("journal: flush segment %d: %w", s.start, err)
	}
	s.flushPos.Store(writePos)
	return int(n), nil
}

// Force fsyncs the segment's file descriptor.
func (s *segment) Force() error {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("journal: fsync segment %d: %w", s.start, err)
	}
	return nil
}

// Rollback sets writePos to relPos, truncating the file on disk if
// flushPos was already past relPos.
func (s *segment) Rollback(dir string, relPos int64) error {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	if err := s.ensureLoadedLocked(dir); err != nil {
		return err
	}
	s.writePos.Store(relPos)
	s.writeClosed.Store(false)
	if s.flushPos.Load() > relPos {
		if err := s.file.Truncate(int64(s.headerSize) + relPos); err != nil {
			return fmt.Errorf("journal: truncate segment %d: %w", s.start, err)
		}
		s.flushPos.Store(relPos)
	}
	return nil
}

// CloseWrite marks the segment as no longer accepting appends.
func (s *segment) CloseWrite() { s.writeClosed.Store(true) }

// Unload releases the page to the buffer pool and closes the file
// handle. Precondition: IsClean(); returns an error otherwise.
func (s *segment) Unload() error {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()
	if s.flushPos.Load() != s.writePos.Load() {
		return fmt.Errorf("journal: unload of dirty segment %d", s.start)
	}
	return s.unloadLocked()
}

// ForceUnload releases the page unconditionally, discarding unflushed
// bytes from memory (the file on disk is unaffected).
func (s *segment) ForceUnload() error {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()
	return s.unloadLocked()
}

func (s *segment) unloadLocked() error {
	if s.page == nil {
		return nil
	}
	s.pool.Release(s.dataSize, s.page)
	s.page = nil
	var err error
	if s.file != nil {
		err = s.file.Close()
		s.file = nil
	}
	if err != nil {
		return fmt.Errorf("journal: close segment %d: %w", s.start, err)
	}
	return nil
}

// fileDataSize returns the number of data bytes currently on disk for
// a segment file, used by recover and AppendFile when the page is not
// loaded.
func fileDataSize(path string, headerSize int) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	size := info.Size() - int64(headerSize)
	if size < 0 {
		size = 0
	}
	return size, nil
}
