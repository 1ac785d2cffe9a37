package bufferpool

import "testing"

func TestBorrowAllocatesWhenEmpty(t *testing.T) {
	p := New()
	buf := p.Borrow(16)
	if len(buf) != 16 {
		t.Fatalf("len(buf) = %d; want 16", len(buf))
	}
}

func TestAddPreLoadEagerlyAllocatesCore(t *testing.T) {
	p := New()
	p.AddPreLoad(8, 3, 5)
	if got := p.IdleCount(8); got != 3 {
		t.Fatalf("IdleCount(8) = %d; want 3", got)
	}
}

func TestBorrowReusesReleasedBuffer(t *testing.T) {
	p := New()
	p.AddPreLoad(8, 0, 2)

	buf := p.Borrow(8)
	buf[0] = 0xFF
	p.Release(8, buf)

	if got := p.IdleCount(8); got != 1 {
		t.Fatalf("IdleCount(8) after release = %d; want 1", got)
	}

	reused := p.Borrow(8)
	if reused[0] != 0 {
		t.Fatalf("reused buffer not zeroed: %v", reused)
	}
}

func TestReleaseDropsBeyondMax(t *testing.T) {
	p := New()
	p.AddPreLoad(8, 0, 1)

	p.Release(8, make([]byte, 8))
	p.Release(8, make([]byte, 8))

	if got := p.IdleCount(8); got != 1 {
		t.Fatalf("IdleCount(8) = %d; want 1 (capped at max)", got)
	}
}

func TestAddPreLoadRefcountsAndTakesMax(t *testing.T) {
	p := New()
	p.AddPreLoad(8, 1, 2)
	p.AddPreLoad(8, 2, 1) // registrant asking for a bigger core, smaller max

	if got := p.IdleCount(8); got != 2 {
		t.Fatalf("IdleCount(8) = %d; want 2 (max of cores)", got)
	}

	p.RemovePreLoad(8)
	if got := p.IdleCount(8); got != 2 {
		t.Fatalf("IdleCount(8) after one RemovePreLoad = %d; want unchanged 2", got)
	}

	p.RemovePreLoad(8)
	if got := p.IdleCount(8); got != 0 {
		t.Fatalf("IdleCount(8) after refcount reaches zero = %d; want 0", got)
	}
}

func TestRemovePreLoadUnregisteredSizeIsNoop(t *testing.T) {
	p := New()
	p.RemovePreLoad(64) // must not panic
}
