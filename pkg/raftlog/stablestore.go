package raftlog

import (
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StableStore persists raft's small key/value metadata (current term,
// last vote, etc). Unlike the log, these keys are overwritten in place,
// which the append-only journal core deliberately does not support — so
// this is a plain, whole-file-rewrite-on-write store instead, the same
// shape as the teacher's YAML config snapshotting.
type StableStore struct {
	mu   sync.Mutex
	path string
	data map[string][]byte
}

// NewStableStore opens (or creates) the gob-encoded key/value file at
// path, loading any existing contents.
func NewStableStore(path string) (*StableStore, error) {
	s := &StableStore{path: path, data: make(map[string][]byte)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *StableStore) load() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("raftlog: open stable store %s: %w", s.path, err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	if err := dec.Decode(&s.data); err != nil {
		return fmt.Errorf("raftlog: decode stable store %s: %w", s.path, err)
	}
	return nil
}

// persist must be called with mu held.
func (s *StableStore) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("raftlog: create stable store dir: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("raftlog: create stable store tmp file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(s.data); err != nil {
		f.Close()
		return fmt.Errorf("raftlog: encode stable store: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("raftlog: fsync stable store: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("raftlog: close stable store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *StableStore) Set(key []byte, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = val
	return s.persist()
}

func (s *StableStore) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, fmt.Errorf("raftlog: key not found")
	}
	return v, nil
}

func (s *StableStore) SetUint64(key []byte, val uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, val)
	return s.Set(key, buf)
}

func (s *StableStore) GetUint64(key []byte) (uint64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}
