// © 2025 chunktable authors. MIT License.

package epoch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStageNotReclaimedWhileReaderPinned(t *testing.T) {
	var reclaimed atomic.Int32
	gc := New(func([]byte) { reclaimed.Add(1) }, WithLoopWait(2*time.Millisecond))
	go gc.Run()
	defer gc.Stop()

	writer := Enter(gc)
	reader := Enter(gc)
	defer reader.Leave()
	defer writer.Leave()

	buf := []byte("retired-key")
	writer.Stage(buf)
	writer.Advance()

	// The reader has not advanced past the staging epoch: the object
	// must not be reclaimed yet.
	time.Sleep(30 * time.Millisecond)
	if reclaimed.Load() != 0 {
		t.Fatalf("object reclaimed before reader advanced: %d", reclaimed.Load())
	}

	reader.Advance()
	deadline := time.Now().Add(500 * time.Millisecond)
	for reclaimed.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if reclaimed.Load() == 0 {
		t.Fatal("object never reclaimed after reader advanced")
	}
}

func TestStageReclaimedWithSingleThread(t *testing.T) {
	var reclaimed atomic.Int32
	gc := New(func([]byte) { reclaimed.Add(1) }, WithLoopWait(2*time.Millisecond))
	go gc.Run()
	defer gc.Stop()

	h := Enter(gc)
	defer h.Leave()

	h.Stage([]byte("a"))
	h.Advance()

	deadline := time.Now().Add(500 * time.Millisecond)
	for reclaimed.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if reclaimed.Load() != 1 {
		t.Fatalf("reclaimed = %d, want 1", reclaimed.Load())
	}
}

func TestStopWaitsForLeave(t *testing.T) {
	gc := New(nil, WithLoopWait(2*time.Millisecond))
	go gc.Run()

	h := Enter(gc)
	stopped := make(chan struct{})
	go func() {
		gc.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before thread called Leave")
	case <-time.After(50 * time.Millisecond):
	}

	h.Leave()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned after Leave")
	}
}

func TestConcurrentStageAdvance(t *testing.T) {
	var reclaimed atomic.Int64
	gc := New(func([]byte) { reclaimed.Add(1) }, WithLoopWait(time.Millisecond))
	go gc.Run()

	const goroutines = 8
	const perGoroutine = 500
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := Enter(gc)
			defer h.Leave()
			for j := 0; j < perGoroutine; j++ {
				h.Stage(make([]byte, 8))
				if j%16 == 0 {
					h.Advance()
				}
			}
			h.Advance()
		}()
	}
	wg.Wait()
	gc.Stop()

	want := int64(goroutines * perGoroutine)
	if reclaimed.Load() != want {
		t.Fatalf("reclaimed = %d, want %d", reclaimed.Load(), want)
	}
}

func TestRingBackPressure(t *testing.T) {
	r := newRing(4)
	for i := 0; i < 4; i++ {
		if !r.push(staged{epoch: uint64(i)}) {
			t.Fatalf("push %d failed unexpectedly", i)
		}
	}
	if r.push(staged{epoch: 99}) {
		t.Fatal("push succeeded on full ring")
	}
	drained := r.drainEligible(2)
	if len(drained) != 2 {
		t.Fatalf("drained %d entries, want 2", len(drained))
	}
	if !r.push(staged{epoch: 100}) {
		t.Fatal("push failed after drain freed room")
	}
}

func TestSnapshotQueue(t *testing.T) {
	q := newSnapshotQueue(2)
	a := &threadContext{}
	b := &threadContext{}
	c := &threadContext{}

	if !q.enqueue(a) || !q.enqueue(b) {
		t.Fatal("enqueue into empty slots should succeed")
	}
	if q.enqueue(c) {
		t.Fatal("enqueue into full queue should fail")
	}
	if head, ok := q.peek(); !ok || head != a {
		t.Fatalf("peek = %v, %v, want a, true", head, ok)
	}
	got, ok := q.dequeue()
	if !ok || got != a {
		t.Fatalf("dequeue = %v, %v, want a, true", got, ok)
	}
	if !q.enqueue(c) {
		t.Fatal("enqueue after dequeue should succeed")
	}
}
