package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/journalkeeper-go/journal/internal/logx"
	"github.com/journalkeeper-go/journal/pkg/bufferpool"
	"github.com/journalkeeper-go/journal/pkg/metrics"
)

// ImmutableStore shares the Positioning Store's segment layout and
// position arithmetic but rejects Append/Flush/Truncate; segments are
// installed wholesale via AppendFile, receiving a complete segment file
// from an external transfer (a leader shipping segments to a follower).
type ImmutableStore struct {
	base string
	cfg  Config
	pool *bufferpool.Pool

	fileMapMutex sync.Mutex
	segmentsPtr  atomic.Pointer[iradix.Tree]

	min atomic.Int64
	max atomic.Int64

	tail *segment // most recently installed segment, guarded by fileMapMutex

	loaded *lru.Cache[int64, *segment]
}

// OpenImmutable creates base if missing and returns an empty immutable
// store over it.
func OpenImmutable(base string, cfg Config, pool *bufferpool.Pool) (*ImmutableStore, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("journal: create store dir %s: %w", base, err)
	}
	pool.AddPreLoad(cfg.FileDataSize, cfg.CachedFileCoreCount, cfg.CachedFileMaxCount)

	s := &ImmutableStore{base: base, cfg: cfg, pool: pool}
	s.segmentsPtr.Store(iradix.New())

	evict := func(_ int64, seg *segment) {
		if err := seg.ForceUnload(); err != nil {
			logx.Warn("journal: eviction unload of immutable segment %d failed: %v", seg.Start(), err)
		}
	}
	cache, err := lru.NewWithEvict(loadedSegmentWindow, evict)
	if err != nil {
		return nil, fmt.Errorf("journal: create loaded-segment cache: %w", err)
	}
	s.loaded = cache
	return s, nil
}

func (s *ImmutableStore) BasePath() string { return s.base }
func (s *ImmutableStore) Min() int64       { return s.min.Load() }
func (s *ImmutableStore) Max() int64       { return s.max.Load() }

// Flushed always equals Max on an immutable store: every installed
// segment came from a complete, already-durable file transfer.
func (s *ImmutableStore) Flushed() int64 { return s.max.Load() }

func (s *ImmutableStore) PhysicalMin() int64 {
	segs := s.snapshot()
	if len(segs) == 0 {
		return s.min.Load()
	}
	return segs[0].Start()
}

func (s *ImmutableStore) Stats() Stats {
	segs := s.snapshot()
	physMin := s.min.Load()
	if len(segs) > 0 {
		physMin = segs[0].Start()
	}
	return Stats{Min: s.min.Load(), PhysicalMin: physMin, Max: s.max.Load(), Flushed: s.max.Load(), Segments: len(segs)}
}

func (s *ImmutableStore) snapshot() []*segment {
	tree := s.segmentsPtr.Load()
	out := make([]*segment, 0, tree.Len())
	tree.Root().Walk(func(_ []byte, v interface{}) bool {
		out = append(out, v.(*segment))
		return false
	})
	return out
}

func (s *ImmutableStore) floor(pos int64) (*segment, bool) {
	segs := s.snapshot()
	i := sort.Search(len(segs), func(i int) bool { return segs[i].Start() > pos })
	if i == 0 {
		return nil, false
	}
	return segs[i-1], true
}

func (s *ImmutableStore) insertSegment(seg *segment) {
	txn := s.segmentsPtr.Load().Txn()
	txn.Insert(posKey(seg.start), seg)
	s.segmentsPtr.Store(txn.Commit())
}

func (s *ImmutableStore) deleteSegment(start int64) {
	txn := s.segmentsPtr.Load().Txn()
	txn.Delete(posKey(start))
	s.segmentsPtr.Store(txn.Commit())
	s.loaded.Remove(start)
}

// Append, Flush, and Truncate are unsupported on an immutable store.
func (s *ImmutableStore) Append([]byte) (int64, error) { return 0, ErrUnsupported }
func (s *ImmutableStore) Flush() error                 { return ErrUnsupported }
func (s *ImmutableStore) Truncate(int64) error         { return ErrUnsupported }

// Read returns length bytes starting at position.
func (s *ImmutableStore) Read(position int64, length int) ([]byte, error) {
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
	s.loaded.Add(seg.Start(), seg)
	return buf, nil
}

func (s *ImmutableStore) ReadLong(position int64) (int64, error) {
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
	s.loaded.Add(seg.Start(), seg)
	return v, nil
}

// AppendFile installs srcPath as the next segment. Only the most
// recently installed segment may be non-full (the live tail snapshotted
// mid-write on the leader); once a further segment is installed behind
// it, that earlier segment's slot is retroactively treated as a full
// dataSize span (I1), the same padding rule the writable store applies
// on rotation. srcPath's base name must equal that aligned boundary (or
// 0, for the very first segment).
func (s *ImmutableStore) AppendFile(srcPath string) error {
	s.fileMapMutex.Lock()
	defer s.fileMapMutex.Unlock()

	name := filepath.Base(srcPath)
	start, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: segment file name %q is not decimal", ErrIllegalArgument, name)
	}

	var expected int64
	if s.tail != nil {
		expected = s.tail.Start() + int64(s.tail.DataSize())
	} else {
		expected = s.max.Load()
	}
	if start != expected {
		return fmt.Errorf("%w: segment file %q does not match expected next segment %d", ErrIllegalArgument, name, expected)
	}

	destPath := segmentPath(s.base, start)
	if err := copyFile(srcPath, destPath); err != nil {
		return fmt.Errorf("journal: install segment %d: %w", start, err)
	}

	size, err := fileDataSize(destPath, s.cfg.FileHeaderSize)
	if err != nil {
		return fmt.Errorf("journal: stat installed segment %d: %w", start, err)
	}

	seg := newSegment(start, s.cfg.FileHeaderSize, s.cfg.FileDataSize, s.pool)
	seg.writePos.Store(size)
	seg.flushPos.Store(size)
	if size >= int64(s.cfg.FileDataSize) {
		seg.writeClosed.Store(true)
	}
	s.insertSegment(seg)
	s.tail = seg
	s.max.Store(start + size)

	metrics.SetSegmentCounts(s.loaded.Len(), s.segmentsPtr.Load().Len())
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Compact discards whole segments entirely below givenMin.
func (s *ImmutableStore) Compact(givenMin int64) (int64, error) {
	s.fileMapMutex.Lock()
	defer s.fileMapMutex.Unlock()

	if givenMin <= s.min.Load() || givenMin > s.max.Load() {
		return 0, ErrIllegalArgument
	}

	segs := s.snapshot()
	var deleted int64
	for _, sg := range segs {
		effectiveSize := int64(sg.DataSize())
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

// Recover populates the store from base the same way the writable store
// does, except flushed is always max.
func (s *ImmutableStore) Recover(minHint int64) error {
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
		start, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		size, err := fileDataSize(filepath.Join(s.base, e.Name()), s.cfg.FileHeaderSize)
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
		s.tail = seg
	}

	last := all[len(all)-1]
	s.max.Store(last.start + last.size)
	if minHint > all[0].start {
		s.min.Store(minHint)
	} else {
		s.min.Store(all[0].start)
	}

	metrics.SetSegmentCounts(s.loaded.Len(), s.segmentsPtr.Load().Len())
	return nil
}

func (s *ImmutableStore) Delete() error {
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

func (s *ImmutableStore) Close() error {
	s.fileMapMutex.Lock()
	defer s.fileMapMutex.Unlock()

	var firstErr error
	for _, sg := range s.snapshot() {
		if err := sg.ForceUnload(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.pool.RemovePreLoad(s.cfg.FileDataSize)
	return firstErr
}

func (s *ImmutableStore) GetFreeSpace() (int64, error)  { return getFreeSpace(s.base) }
func (s *ImmutableStore) GetTotalSpace() (int64, error) { return getTotalSpace(s.base) }
