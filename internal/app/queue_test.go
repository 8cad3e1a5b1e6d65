package app

import "testing"

func TestEnqueueMovesToBack(t *testing.T) {
	q := NewQueue()
	q.Enqueue("u1", "p")
	q.Enqueue("u2", "p")
	q.Enqueue("u1", "p") // re-enqueue: move, not duplicate

	if _, pos, _ := q.Position("u2"); pos != 1 {
		t.Fatalf("expected u2 at the front, got position %d", pos)
	}
	if _, pos, _ := q.Position("u1"); pos != 2 {
		t.Fatalf("expected u1 moved to the back, got position %d", pos)
	}
	if q.Counts()["p"] != 2 {
		t.Fatalf("expected 2 entries, got %d", q.Counts()["p"])
	}
}

func TestEnqueueSwitchesPools(t *testing.T) {
	q := NewQueue()
	q.Enqueue("u1", "p1")
	q.Enqueue("u1", "p2")

	if code, _, ok := q.Position("u1"); !ok || code != "p2" {
		t.Fatalf("expected u1 only on p2, got %q ok=%v", code, ok)
	}
	if q.Counts()["p1"] != 0 {
		t.Fatalf("expected p1 drained, got %+v", q.Counts())
	}
}

func TestRemoveNotQueued(t *testing.T) {
	q := NewQueue()
	if q.Remove("ghost") {
		t.Fatalf("removing an absent entry must be a no-op")
	}
}

func TestPopPairPurgesStaleEntries(t *testing.T) {
	q := NewQueue()
	q.Enqueue("stale", "p")
	q.Enqueue("u1", "p")
	q.Enqueue("u2", "p")

	a, b, ok := q.PopPair("p", func(id string) bool { return id != "stale" })
	if !ok || a != "u1" || b != "u2" {
		t.Fatalf("expected (u1,u2) after purging, got (%s,%s) ok=%v", a, b, ok)
	}
	if _, _, stillQueued := q.Position("stale"); stillQueued {
		t.Fatalf("stale entry must be purged")
	}
	if _, _, ok := q.PopPair("p", func(string) bool { return true }); ok {
		t.Fatalf("expected fewer than 2 entries left")
	}
}

func TestPopPairFIFO(t *testing.T) {
	q := NewQueue()
	q.Enqueue("u1", "p")
	q.Enqueue("u2", "p")
	q.Enqueue("u3", "p")

	a, b, ok := q.PopPair("p", func(string) bool { return true })
	if !ok || a != "u1" || b != "u2" {
		t.Fatalf("expected the longest-waiting pair, got (%s,%s)", a, b)
	}
	if _, pos, _ := q.Position("u3"); pos != 1 {
		t.Fatalf("expected u3 promoted to the front, got %d", pos)
	}
}
