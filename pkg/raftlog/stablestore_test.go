package raftlog

import (
	"path/filepath"
	"testing"
)

func TestStableStoreSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stable.gob")
	s, err := NewStableStore(path)
	if err != nil {
		t.Fatalf("NewStableStore: %v", err)
	}

	if err := s.Set([]byte("CurrentTerm"), []byte("term-value")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get([]byte("CurrentTerm"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "term-value" {
		t.Fatalf("Get() = %q; want %q", got, "term-value")
	}

	if err := s.SetUint64([]byte("LastVoteTerm"), 7); err != nil {
		t.Fatalf("SetUint64: %v", err)
	}
	n, err := s.GetUint64([]byte("LastVoteTerm"))
	if err != nil {
		t.Fatalf("GetUint64: %v", err)
	}
	if n != 7 {
		t.Fatalf("GetUint64() = %d; want 7", n)
	}
}

func TestStableStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stable.gob")
	s, err := NewStableStore(path)
	if err != nil {
		t.Fatalf("NewStableStore: %v", err)
	}
	if err := s.SetUint64([]byte("CurrentTerm"), 3); err != nil {
		t.Fatalf("SetUint64: %v", err)
	}

	reopened, err := NewStableStore(path)
	if err != nil {
		t.Fatalf("NewStableStore (reopen): %v", err)
	}
	n, err := reopened.GetUint64([]byte("CurrentTerm"))
	if err != nil {
		t.Fatalf("GetUint64: %v", err)
	}
	if n != 3 {
		t.Fatalf("GetUint64() after reopen = %d; want 3", n)
	}
}

func TestStableStoreGetMissingKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stable.gob")
	s, err := NewStableStore(path)
	if err != nil {
		t.Fatalf("NewStableStore: %v", err)
	}
	if _, err := s.Get([]byte("missing")); err == nil {
		t.Fatalf("Get(missing) should error")
	}
}
