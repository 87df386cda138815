package render

import (
	"testing"

	"github.com/sweeney/ambientd/internal/controller"
)

func TestQueueEmptyDrain(t *testing.T) {
	q := newTransitionQueue(4)
	got, dropped := q.drain()
	if got != nil {
		t.Errorf("expected nil from empty drain, got %d entries", len(got))
	}
	if dropped != 0 {
		t.Errorf("expected nothing dropped, got %d", dropped)
	}
}

func TestQueueKeepsOrder(t *testing.T) {
	q := newTransitionQueue(8)
	for i := 1; i <= 5; i++ {
		q.push(Transition{Seq: uint64(i)})
	}

	got, _ := q.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}
	for i, tr := range got {
		if tr.Seq != uint64(i+1) {
			t.Errorf("entry %d: expected seq %d, got %d", i, i+1, tr.Seq)
		}
	}

	if again, _ := q.drain(); again != nil {
		t.Errorf("expected nil from second drain, got %d entries", len(again))
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	q := newTransitionQueue(3)
	for i := 1; i <= 7; i++ {
		q.push(Transition{Seq: uint64(i)})
	}

	got, dropped := q.drain()
	if dropped != 4 {
		t.Errorf("expected 4 dropped, got %d", dropped)
	}
	want := []uint64{5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, tr := range got {
		if tr.Seq != want[i] {
			t.Errorf("entry %d: expected seq %d, got %d", i, want[i], tr.Seq)
		}
	}

	// The drop count belongs to one drain only.
	q.push(Transition{Seq: 8})
	if _, dropped := q.drain(); dropped != 0 {
		t.Errorf("expected drop count reset, got %d", dropped)
	}
}

func TestQueueWrapsAcrossDrains(t *testing.T) {
	q := newTransitionQueue(4)
	q.push(Transition{Seq: 1})
	q.push(Transition{Seq: 2})
	q.push(Transition{Seq: 3})
	q.drain()

	for i := 10; i < 14; i++ {
		q.push(Transition{Seq: uint64(i)})
	}
	if q.len() != 4 {
		t.Fatalf("expected len 4, got %d", q.len())
	}
	got, dropped := q.drain()
	if dropped != 0 {
		t.Errorf("expected nothing dropped, got %d", dropped)
	}
	for i, tr := range got {
		if want := uint64(10 + i); tr.Seq != want {
			t.Errorf("entry %d: expected seq %d, got %d", i, want, tr.Seq)
		}
	}
	if q.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", q.len())
	}
}

func TestQueuePreservesFields(t *testing.T) {
	q := newTransitionQueue(2)
	want := Transition{At: 1234, Seq: 9, From: controller.ModeRGB, To: controller.ModeSleepPrep}
	q.push(want)

	got, _ := q.drain()
	if len(got) != 1 || got[0] != want {
		t.Errorf("got %+v, want [%+v]", got, want)
	}
}
