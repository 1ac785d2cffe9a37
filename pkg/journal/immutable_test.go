package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/journalkeeper-go/journal/pkg/bufferpool"
)

func TestImmutableStoreRejectsMutations(t *testing.T) {
	cfg := Config{FileHeaderSize: 0, FileDataSize: 16, CachedFileMaxCount: 2}
	s, err := OpenImmutable(t.TempDir(), cfg, bufferpool.New())
	if err != nil {
		t.Fatalf("OpenImmutable: %v", err)
	}

	if _, err := s.Append([]byte("x")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Append err = %v; want ErrUnsupported", err)
	}
	if err := s.Flush(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Flush err = %v; want ErrUnsupported", err)
	}
	if err := s.Truncate(0); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Truncate err = %v; want ErrUnsupported", err)
	}
}

func TestImmutableStoreAppendFile(t *testing.T) {
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "0")
	if err := os.WriteFile(srcPath, []byte("hello world"), 0644); err != nil {
		t.Fatalf("write source segment: %v", err)
	}

	cfg := Config{FileHeaderSize: 0, FileDataSize: 16, CachedFileMaxCount: 2}
	s, err := OpenImmutable(t.TempDir(), cfg, bufferpool.New())
	if err != nil {
		t.Fatalf("OpenImmutable: %v", err)
	}

	if err := s.AppendFile(srcPath); err != nil {
		t.Fatalf("AppendFile: %v", err)
	}
	if s.Max() != 11 {
		t.Fatalf("Max() = %d; want 11", s.Max())
	}
	if s.Flushed() != s.Max() {
		t.Fatalf("Flushed() = %d; want Max() %d", s.Flushed(), s.Max())
	}

	got, err := s.Read(0, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Read(0,5) = %q; want %q", got, "hello")
	}
}

func TestImmutableStoreAppendFileRejectsWrongName(t *testing.T) {
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "99")
	if err := os.WriteFile(srcPath, []byte("hello"), 0644); err != nil {
		t.Fatalf("write source segment: %v", err)
	}

	cfg := Config{FileHeaderSize: 0, FileDataSize: 16, CachedFileMaxCount: 2}
	s, err := OpenImmutable(t.TempDir(), cfg, bufferpool.New())
	if err != nil {
		t.Fatalf("OpenImmutable: %v", err)
	}

	if err := s.AppendFile(srcPath); !errors.Is(err, ErrIllegalArgument) {
		t.Fatalf("AppendFile err = %v; want ErrIllegalArgument", err)
	}
}

func TestImmutableStoreRecover(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(segmentPath(dir, 0), make([]byte, 8), 0644); err != nil {
		t.Fatalf("write segment 0: %v", err)
	}
	if err := os.WriteFile(segmentPath(dir, 8), make([]byte, 4), 0644); err != nil {
		t.Fatalf("write segment 8: %v", err)
	}

	cfg := Config{FileHeaderSize: 0, FileDataSize: 8, CachedFileMaxCount: 2}
	s, err := OpenImmutable(t.TempDir(), cfg, bufferpool.New())
	if err != nil {
		t.Fatalf("OpenImmutable: %v", err)
	}
	s.base = dir

	if err := s.Recover(0); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if s.Max() != 12 {
		t.Fatalf("Max() = %d; want 12", s.Max())
	}
	if s.Flushed() != 12 {
		t.Fatalf("Flushed() = %d; want 12", s.Flushed())
	}
}
