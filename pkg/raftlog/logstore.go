// Package raftlog adapts pkg/journal's positioning store to
// hashicorp/raft's LogStore and StableStore interfaces, replacing an
// in-memory raft.NewInmemStore() with a disk-backed segmented journal.
package raftlog

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/hashicorp/raft"

	"github.com/journalkeeper-go/journal/pkg/journal"
)

const headerLen = 8 // length prefix for each framed raft.Log record

type entryLoc struct {
	pos    int64
	length int
}

// LogStore is a raft.LogStore backed by a journal.Store. Each raft.Log is
// msgpack-encoded and framed with an 8-byte big-endian length prefix so
// the store's record boundaries can be rebuilt by a sequential scan after
// a restart, since the journal core itself treats records as opaque,
// externally length-described blobs.
type LogStore struct {
	mu    sync.RWMutex
	store *journal.Store
	index map[uint64]entryLoc

	first uint64
	last  uint64
}

// NewLogStore wraps store, rebuilding its index→position map by scanning
// [store.Min(), store.Max()) once.
func NewLogStore(store *journal.Store) (*LogStore, error) {
	ls := &LogStore{store: store, index: make(map[uint64]entryLoc)}
	if err := ls.rebuildIndex(); err != nil {
		return nil, err
	}
	return ls, nil
}

func (ls *LogStore) rebuildIndex() error {
	pos := ls.store.Min()
	max := ls.store.Max()
	for pos < max {
		header, err := ls.store.Read(pos, headerLen)
		if err != nil {
			return fmt.Errorf("raftlog: read frame header at %d: %w", pos, err)
		}
		length := int(binary.BigEndian.Uint64(header))
		payload, err := ls.store.Read(pos+headerLen, length)
		if err != nil {
			return fmt.Errorf("raftlog: read frame payload at %d: %w", pos, err)
		}
		var entry raft.Log
		if err := decodeLog(payload, &entry); err != nil {
			return fmt.Errorf("raftlog: decode frame at %d: %w", pos, err)
		}
		ls.index[entry.Index] = entryLoc{pos: pos, length: headerLen + length}
		if ls.first == 0 || entry.Index < ls.first {
			ls.first = entry.Index
		}
		if entry.Index > ls.last {
			ls.last = entry.Index
		}
		pos += int64(headerLen + length)
	}
	return nil
}

func encodeLog(log *raft.Log) ([]byte, error) {
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, &codec.MsgpackHandle{})
	if err := enc.Encode(log); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeLog(b []byte, log *raft.Log) error {
	dec := codec.NewDecoderBytes(b, &codec.MsgpackHandle{})
	return dec.Decode(log)
}

// FirstIndex returns the index of the oldest log stored, or 0 if empty.
func (ls *LogStore) FirstIndex() (uint64, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.first, nil
}

// LastIndex returns the index of the newest log stored, or 0 if empty.
func (ls *LogStore) LastIndex() (uint64, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.last, nil
}

// GetLog fills in log with the entry at index.
func (ls *LogStore) GetLog(index uint64, log *raft.Log) error {
	ls.mu.RLock()
	loc, ok := ls.index[index]
	ls.mu.RUnlock()
	if !ok {
		return raft.ErrLogNotFound
	}
	payload, err := ls.store.Read(loc.pos+headerLen, loc.length-headerLen)
	if err != nil {
		return fmt.Errorf("raftlog: read log %d: %w", index, err)
	}
	return decodeLog(payload, log)
}

// StoreLog appends a single log entry.
func (ls *LogStore) StoreLog(log *raft.Log) error {
	return ls.StoreLogs([]*raft.Log{log})
}

// StoreLogs appends a batch of log entries in order.
func (ls *LogStore) StoreLogs(logs []*raft.Log) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for _, log := range logs {
		payload, err := encodeLog(log)
		if err != nil {
			return fmt.Errorf("raftlog: encode log %d: %w", log.Index, err)
		}
		frame := make([]byte, headerLen+len(payload))
		binary.BigEndian.PutUint64(frame[:headerLen], uint64(len(payload)))
		copy(frame[headerLen:], payload)

		newMax, err := ls.store.Append(frame)
		if err != nil {
			return fmt.Errorf("raftlog: append log %d: %w", log.Index, err)
		}
		pos := newMax - int64(len(frame))
		ls.index[log.Index] = entryLoc{pos: pos, length: len(frame)}
		if ls.first == 0 || log.Index < ls.first {
			ls.first = log.Index
		}
		if log.Index > ls.last {
			ls.last = log.Index
		}
	}
	return ls.store.Flush()
}

// DeleteRange removes log entries in [min, max] from the index. When the
// range abuts the tail it truncates the journal to reclaim disk space;
// when it abuts the head it compacts. An interior range (rare in raft's
// own usage) is removed from the index only.
func (ls *LogStore) DeleteRange(min, max uint64) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	switch {
	case min <= ls.first && max < ls.last:
		// Head compaction: drop whole segments behind the entry that
		// follows max, if we still have one.
		if loc, ok := ls.index[max+1]; ok {
			if _, err := ls.store.Compact(loc.pos); err != nil {
				return fmt.Errorf("raftlog: compact through %d: %w", max, err)
			}
		}
		ls.first = max + 1
	case max >= ls.last && min > 0:
		// Tail truncation: a new leader is overwriting uncommitted
		// entries, or a follower conflict rollback.
		if loc, ok := ls.index[min]; ok {
			if err := ls.store.Truncate(loc.pos); err != nil {
				return fmt.Errorf("raftlog: truncate from %d: %w", min, err)
			}
		}
		if min > 0 {
			ls.last = min - 1
		} else {
			ls.last = 0
		}
	}

	for i := min; i <= max; i++ {
		delete(ls.index, i)
	}
	if len(ls.index) == 0 {
		ls.first, ls.last = 0, 0
	}
	return nil
}
