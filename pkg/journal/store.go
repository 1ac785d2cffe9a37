// Package journal implements the segmented, position-addressed,
// append-only store: a directory of fixed-size segment files indexed by
// starting byte position, with a preloaded buffer cache backing each
// segment's in-memory page.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	iradix "github.com/hashicorp/go-immutable-radix"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/journalkeeper-go/journal/internal/logx"
	"github.com/journalkeeper-go/journal/pkg/bufferpool"
	"github.com/journalkeeper-go/journal/pkg/metrics"
)

// loadedSegmentWindow bounds how many segments the store keeps resident
// (paged in) at once before the LRU starts unloading the least recently
// touched one. This is an internal implementation knob, not part of the
// store's external property table.
const loadedSegmentWindow = 32

// Store is the writable positioning store: a directory of segments
// indexed by start position, implementing append/read/flush/truncate/
// compact/recover/delete/close.
type Store struct {
	base string
	cfg  Config
	pool *bufferpool.Pool

	fileMapMutex sync.Mutex // serializes truncate/compact/close/delete
	segmentsPtr  atomic.Pointer[iradix.Tree]

	min     atomic.Int64
	flushed atomic.Int64
	max     atomic.Int64

	tailMu sync.Mutex
	tail   *segment

	loaded *lru.Cache[int64, *segment]
}

// Stats is the small monitoring summary surfaced over the store, mirroring
// the original's toString() fields.
type Stats struct {
	Min         int64
	PhysicalMin int64
	Max         int64
	Flushed     int64
	Segments    int
}

func posKey(pos int64) []byte {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(pos)
		pos >>= 8
	}
	return b[:]
}

// Open creates base if missing and returns an empty writable store over
// it, registering cfg's buffer-cache preload with pool. Call Recover
// afterward to populate an existing directory.
func Open(base string, cfg Config, pool *bufferpool.Pool) (*Store, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("journal: create store dir %s: %w", base, err)
	}
	pool.AddPreLoad(cfg.FileDataSize, cfg.CachedFileCoreCount, cfg.CachedFileMaxCount)

	s := &Store{base: base, cfg: cfg, pool: pool}
	s.segmentsPtr.Store(iradix.New())

	evict := func(_ int64, seg *segment) {
		if err := seg.Unload(); err != nil {
			logx.Warn("journal: eviction unload of segment %d failed: %v", seg.Start(), err)
		}
	}
	cache, err := lru.NewWithEvict(loadedSegmentWindow, evict)
	if err != nil {
		return nil, fmt.Errorf("journal: create loaded-segment cache: %w", err)
	}
	s.loaded = cache
	return s, nil
}

func (s *Store) BasePath() string { return s.base }

func (s *Store) Min() int64     { return s.min.Load() }
func (s *Store) Max() int64     { return s.max.Load() }
func (s *Store) Flushed() int64 { return s.flushed.Load() }

func (s *Store) GetFreeSpace() (int64, error)  { return getFreeSpace(s.base) }
func (s *Store) GetTotalSpace() (int64, error) { return getTotalSpace(s.base) }

// PhysicalMin returns the start position of the first segment still on
// disk, which may be < Min() after compact (see compact's §4.3 note).
func (s *Store) PhysicalMin() int64 {
	segs := s.snapshot()
	if len(segs) == 0 {
		return s.min.Load()
	}
	return segs[0].Start()
}

func (s *Store) Stats() Stats {
	segs := s.snapshot()
	physMin := s.min.Load()
	if len(segs) > 0 {
		physMin = segs[0].Start()
	}
	return Stats{
		Min:         s.min.Load(),
		PhysicalMin: physMin,
		Max:         s.max.Load(),
		Flushed:     s.flushed.Load(),
		Segments:    len(segs),
	}
}

func (s *Store) String() string {
	st := s.Stats()
	return fmt.Sprintf("PositioningStore[base=%s, min=%d, physicalMin=%d, max=%d, flushed=%d, segments=%d]",
		s.base, st.Min, st.PhysicalMin, st.Max, st.Flushed, st.Segments)
}

// snapshot returns every known segment in ascending start order. Safe to
// call concurrently with insert/delete: it walks an immutable tree
// pointer taken at a single instant.
func (s *Store) snapshot() []*segment {
	tree := s.segmentsPtr.Load()
	out := make([]*segment, 0, tree.Len())
	tree.Root().Walk(func(_ []byte, v interface{}) bool {
		out = append(out, v.(*segment))
		return false
	})
	return out
}

// floor returns the segment with the greatest start <= pos, if any.
func (s *Store) floor(pos int64) (*segment, bool) {
	segs := s.snapshot()
	i := sort.Search(len(segs), func(i int) bool { return segs[i].Start() > pos })
	if i == 0 {
		return nil, false
	}
	return segs[i-1], true
}

func (s *Store) insertSegment(seg *segment) {
	txn := s.segmentsPtr.Load().Txn()
	txn.Insert(posKey(seg.start), seg)
	s.segmentsPtr.Store(txn.Commit())
}

func (s *Store) deleteSegment(start int64) {
	txn := s.segmentsPtr.Load().Txn()
	txn.Delete(posKey(start))
	s.segmentsPtr.Store(txn.Commit())
	s.loaded.Remove(start)
}

func (s *Store) touchLoaded(seg *segment) {
	s.loaded.Add(seg.Start(), seg)
}

// Append appends bytes to the tail, rotating to a new segment first if
// necessary, and returns the new Max().
func (s *Store) Append(bytes []byte) (int64, error) {
	if len(bytes) > s.cfg.FileDataSize {
		return 0, ErrTooManyBytes
	}

	s.waitForBackpressure()

	s.tailMu.Lock()
	defer s.tailMu.Unlock()

	if s.tail == nil || int64(s.tail.DataSize())-s.tail.WritePos() < int64(len(bytes)) {
		if err := s.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := s.tail.Append(s.base, bytes)
	if err != nil {
		return 0, err
	}
	s.touchLoaded(s.tail)
	newMax := s.tail.Start() + s.tail.WritePos()
	s.max.Store(newMax)
	_ = n
	metrics.PushAppend(len(bytes))
	metrics.SetSegmentCounts(s.loaded.Len(), s.segmentsPtr.Load().Len())
	return newMax, nil
}

func (s *Store) waitForBackpressure() {
	if s.cfg.MaxDirtySize <= 0 {
		return
	}
	start := time.Now()
	waited := false
	for s.max.Load()-s.flushed.Load() > s.cfg.MaxDirtySize {
		waited = true
		runtime.Gosched()
	}
	if waited {
		metrics.PushBackpressureWait(time.Since(start))
	}
}

// rotateLocked closes the current tail (if any) and creates a new one
// starting at the next dataSize-aligned boundary, not at Max(): a
// partial tail still occupies a full dataSize-wide slot (I1, every
// non-last segment is a full segment of length dataSize), so the bytes
// between the old tail's writePos and its dataSize boundary become
// unaddressable padding rather than being reused by the new segment.
// Caller must hold tailMu.
func (s *Store) rotateLocked() error {
	free, err := s.GetFreeSpace()
	if err == nil && free >= 0 && free < int64(s.cfg.FileDataSize+s.cfg.FileHeaderSize) {
		return ErrDiskFull
	}

	var start int64
	if s.tail != nil {
		s.tail.CloseWrite()
		start = s.tail.Start() + int64(s.tail.DataSize())
	} else {
		start = s.max.Load()
	}
	seg := newSegment(start, s.cfg.FileHeaderSize, s.cfg.FileDataSize, s.pool)
	s.insertSegment(seg)
	s.tail = seg
	s.max.Store(start)
	return nil
}

// Read returns length bytes starting at position.
func (s *Store) Read(position int64, length int) ([]byte, error) {
	if position < s.min.Load() {
		return nil, ErrPositionUnderflow
	}
	if position >= s.max.Load() {
		return nil, ErrPositionOverflow
	}
	seg, ok := s.floor(position)
	if !ok {
		return nil, nil
	}
	buf, err := seg.Read(s.base, position-seg.Start(), length)
	if err != nil {
		return nil, err
	}
	s.touchLoaded(seg)
	return buf, nil
}

// ReadLong reads an 8-byte big-endian integer at position.
func (s *Store) ReadLong(position int64) (int64, error) {
	if position < s.min.Load() {
		return 0, ErrPositionUnderflow
	}
	if position >= s.max.Load() {
		return 0, ErrPositionOverflow
	}
	seg, ok := s.floor(position)
	if !ok {
		return 0, nil
	}
	v, err := seg.ReadLong(s.base, position-seg.Start())
	if err != nil {
		return 0, err
	}
	s.touchLoaded(seg)
	return v, nil
}

// Flush walks segments forward from the one containing Flushed() while
// dirty bytes exist, forcing each segment's predecessor to disk before
// that segment's first ever page write.
func (s *Store) Flush() error {
	start := time.Now()
	flushed := s.flushed.Load()
	segs := s.snapshot()
	idx := sort.Search(len(segs), func(i int) bool { return segs[i].Start() > flushed })
	if idx > 0 {
		idx--
	}

	var totalWritten int
	var prev *segment
	for i := idx; i < len(segs); i++ {
		seg := segs[i]
		if seg.IsClean() {
			prev = seg
			continue
		}
		if seg.FlushPos() == 0 && prev != nil {
			if err := prev.Force(); err != nil {
				return err
			}
		}
		n, err := seg.Flush(s.base)
		if err != nil {
			return err
		}
		totalWritten += n
		newFlushed := seg.Start() + seg.FlushPos()
		if newFlushed > s.flushed.Load() {
			s.flushed.Store(newFlushed)
		}
		prev = seg
	}
	if totalWritten > 0 {
		metrics.PushFlush(totalWritten, time.Since(start))
	}
	return nil
}

// Truncate discards everything at positions >= givenMax.
func (s *Store) Truncate(givenMax int64) error {
	s.fileMapMutex.Lock()
	defer s.fileMapMutex.Unlock()

	if givenMax < s.min.Load() || givenMax > s.max.Load() {
		return ErrIllegalArgument
	}

	segs := s.snapshot()
	seg, ok := s.floor(givenMax)
	if ok && givenMax > seg.Start() {
		if err := seg.Rollback(s.base, givenMax-seg.Start()); err != nil {
			return err
		}
	}

	for _, sg := range segs {
		if sg.Start() >= givenMax {
			if err := sg.ForceUnload(); err != nil {
				return err
			}
			if err := os.Remove(sg.Path(s.base)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("journal: remove segment %d: %w", sg.Start(), err)
			}
			s.deleteSegment(sg.Start())
		}
	}

	s.max.Store(givenMax)
	if s.flushed.Load() > givenMax {
		s.flushed.Store(givenMax)
	}

	s.tailMu.Lock()
	if ok && givenMax > seg.Start() {
		seg.writeClosed.Store(false)
		s.tail = seg
	} else {
		s.tail = nil
	}
	s.tailMu.Unlock()

	metrics.SetSegmentCounts(s.loaded.Len(), s.segmentsPtr.Load().Len())
	return nil
}

// Compact discards whole segments entirely below givenMin. Returns the
// number of bytes reclaimed.
func (s *Store) Compact(givenMin int64) (int64, error) {
	s.fileMapMutex.Lock()
	defer s.fileMapMutex.Unlock()

	if givenMin <= s.min.Load() || givenMin > s.flushed.Load() {
		return 0, ErrIllegalArgument
	}

	segs := s.snapshot()
	var deleted int64
	for _, sg := range segs {
		var effectiveSize int64
		if sg.HasPage() && sg.Start() == s.tailStart() {
			effectiveSize = sg.WritePos()
		} else {
			effectiveSize = int64(sg.DataSize())
		}
		if sg.Start()+effectiveSize > givenMin {
			break
		}
		if err := sg.ForceUnload(); err != nil {
			return deleted, err
		}
		if err := os.Remove(sg.Path(s.base)); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("journal: remove segment %d: %w", sg.Start(), err)
		}
		s.deleteSegment(sg.Start())
		deleted += effectiveSize
	}

	s.min.Store(givenMin)
	metrics.PushCompact(deleted)
	metrics.SetSegmentCounts(s.loaded.Len(), s.segmentsPtr.Load().Len())
	return deleted, nil
}

func (s *Store) tailStart() int64 {
	s.tailMu.Lock()
	defer s.tailMu.Unlock()
	if s.tail == nil {
		return -1
	}
	return s.tail.Start()
}

// Recover populates the store from base, enumerating digit-named files,
// verifying continuity, and positioning min/max/flushed.
func (s *Store) Recover(minHint int64) error {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		return fmt.Errorf("journal: read store dir %s: %w", s.base, err)
	}

	type found struct {
		start int64
		size  int64
	}
	var all []found
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		start, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			continue
		}
		size, err := fileDataSize(filepath.Join(s.base, name), s.cfg.FileHeaderSize)
		if err != nil {
			continue
		}
		if start >= minHint || start+size > minHint {
			all = append(all, found{start: start, size: size})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].start < all[j].start })

	if len(all) == 0 {
		s.min.Store(minHint)
		s.max.Store(minHint)
		s.flushed.Store(minHint)
		return nil
	}

	position := all[0].start
	for i, f := range all {
		if f.start != position {
			return ErrCorruptedStore
		}
		seg := newSegment(f.start, s.cfg.FileHeaderSize, s.cfg.FileDataSize, s.pool)
		seg.writePos.Store(f.size)
		seg.flushPos.Store(f.size)

		isLast := i == len(all)-1
		// Every non-last segment occupies a full dataSize-wide slot
		// regardless of how many real bytes it holds on disk (I1):
		// the gap up to its boundary is padding, not room for the
		// next segment to start early, so the continuity walk steps
		// by dataSize rather than by the segment's actual file size.
		if !isLast {
			seg.writeClosed.Store(true)
			position += int64(s.cfg.FileDataSize)
		} else {
			if f.size >= int64(s.cfg.FileDataSize) {
				seg.writeClosed.Store(true)
			}
			position += f.size
		}
		s.insertSegment(seg)
	}

	last := all[len(all)-1]
	writePos := last.start + last.size

	s.max.Store(writePos)
	s.flushed.Store(writePos)
	if minHint > all[0].start {
		s.min.Store(minHint)
	} else {
		s.min.Store(all[0].start)
	}

	if last.size < int64(s.cfg.FileDataSize) {
		segs := s.snapshot()
		s.tailMu.Lock()
		s.tail = segs[len(segs)-1]
		s.tailMu.Unlock()
	}

	metrics.SetSegmentCounts(s.loaded.Len(), s.segmentsPtr.Load().Len())
	return nil
}

// Delete force-unloads and removes every segment, then removes base.
func (s *Store) Delete() error {
	s.fileMapMutex.Lock()
	defer s.fileMapMutex.Unlock()

	for _, sg := range s.snapshot() {
		_ = sg.ForceUnload()
		s.deleteSegment(sg.Start())
	}
	if err := os.RemoveAll(s.base); err != nil {
		return fmt.Errorf("journal: remove store dir %s: %w", s.base, err)
	}
	s.pool.RemovePreLoad(s.cfg.FileDataSize)
	return nil
}

// Close flushes every dirty segment, force-unloads all of them, and
// de-registers the store's preload with the buffer cache. The first
// error encountered is returned, but every segment is still processed.
func (s *Store) Close() error {
	s.fileMapMutex.Lock()
	defer s.fileMapMutex.Unlock()

	var firstErr error
	if err := s.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, sg := range s.snapshot() {
		if err := sg.ForceUnload(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.pool.RemovePreLoad(s.cfg.FileDataSize)
	return firstErr
}
