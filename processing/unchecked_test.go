package processing

import (
	"testing"

	"github.com/tolelom/latticenode/core"
)

func depHash(seed byte) core.Hash {
	var h core.Hash
	for i := range h {
		h[i] = seed
	}
	return h
}

func TestUncheckedMapPutAndRelease(t *testing.T) {
	u := NewUncheckedMap(10)
	dep := depHash(1)
	b1 := &core.Block{Type: core.BlockSend}
	b2 := &core.Block{Type: core.BlockReceive}

	u.Put(dep, b1, SourceLive)
	u.Put(dep, b2, SourceUnchecked)
	if u.Len() != 2 {
		t.Fatalf("Len: got %d want 2", u.Len())
	}

	released := u.Release(dep)
	if len(released) != 2 {
		t.Fatalf("Release: got %d blocks want 2", len(released))
	}
	if u.Len() != 0 {
		t.Errorf("Len after release: got %d want 0", u.Len())
	}

	// Releasing again yields nothing: the bucket is gone.
	if again := u.Release(dep); again != nil {
		t.Errorf("second Release should return nil, got %v", again)
	}
}

func TestUncheckedMapReleaseUnknownDepReturnsNil(t *testing.T) {
	u := NewUncheckedMap(10)
	if got := u.Release(depHash(9)); got != nil {
		t.Errorf("expected nil for unstaged dependency, got %v", got)
	}
}

func TestUncheckedMapEvictsOldestBucketAtCapacity(t *testing.T) {
	u := NewUncheckedMap(2)
	u.Put(depHash(1), &core.Block{Type: core.BlockSend}, SourceLive)
	u.Put(depHash(2), &core.Block{Type: core.BlockSend}, SourceLive)
	if u.Len() != 2 {
		t.Fatalf("Len: got %d want 2", u.Len())
	}

	// A third bucket pushes total count over capacity, evicting dep(1).
	u.Put(depHash(3), &core.Block{Type: core.BlockSend}, SourceLive)
	if u.Len() != 2 {
		t.Errorf("Len after eviction: got %d want 2", u.Len())
	}
	if released := u.Release(depHash(1)); released != nil {
		t.Error("oldest bucket should have been evicted")
	}
	if released := u.Release(depHash(3)); released == nil {
		t.Error("newest bucket should survive eviction")
	}
}
