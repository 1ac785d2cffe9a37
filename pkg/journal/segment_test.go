package journal

import (
	"testing"

	"github.com/journalkeeper-go/journal/pkg/bufferpool"
)

func TestSegmentAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	pool := bufferpool.New()
	seg := newSegment(0, 0, 16, pool)

	n, err := seg.Append(dir, []byte("hello"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 5 {
		t.Fatalf("n = %d; want 5", n)
	}
	if seg.IsClean() {
		t.Fatalf("segment should be dirty after append")
	}

	got, err := seg.Read(dir, 0, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Read = %q; want %q", got, "hello")
	}
}

func TestSegmentAppendClampsToRemainingSpace(t *testing.T) {
	dir := t.TempDir()
	seg := newSegment(0, 0, 4, bufferpool.New())

	n, err := seg.Append(dir, []byte("abcdef"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d; want 4 (clamped to dataSize)", n)
	}
	if !seg.WriteClosed() {
		t.Fatalf("segment should auto-close once full")
	}
}

func TestSegmentFlushAndForce(t *testing.T) {
	dir := t.TempDir()
	seg := newSegment(0, 0, 16, bufferpool.New())

	if _, err := seg.Append(dir, []byte("hello")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	n, err := seg.Flush(dir)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n != 5 {
		t.Fatalf("Flush wrote %d bytes; want 5", n)
	}
	if !seg.IsClean() {
		t.Fatalf("segment should be clean after flush")
	}
	if err := seg.Force(); err != nil {
		t.Fatalf("Force: %v", err)
	}
}

func TestSegmentRollbackTruncatesFlushedTail(t *testing.T) {
	dir := t.TempDir()
	seg := newSegment(0, 0, 16, bufferpool.New())

	if _, err := seg.Append(dir, []byte("hello world")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := seg.Flush(dir); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if err := seg.Rollback(dir, 4); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if seg.WritePos() != 4 {
		t.Fatalf("WritePos() = %d; want 4", seg.WritePos())
	}
	if seg.FlushPos() != 4 {
		t.Fatalf("FlushPos() = %d; want 4", seg.FlushPos())
	}

	info, err := seg.file.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 4 {
		t.Fatalf("file size = %d; want 4", info.Size())
	}
}

func TestSegmentUnloadRequiresClean(t *testing.T) {
	dir := t.TempDir()
	pool := bufferpool.New()
	seg := newSegment(0, 0, 16, pool)

	if _, err := seg.Append(dir, []byte("hello")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := seg.Unload(); err == nil {
		t.Fatalf("Unload on dirty segment should fail")
	}
	if err := seg.ForceUnload(); err != nil {
		t.Fatalf("ForceUnload: %v", err)
	}
	if seg.HasPage() {
		t.Fatalf("segment should have no page after ForceUnload")
	}
}
