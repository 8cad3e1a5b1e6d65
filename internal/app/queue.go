package app

import "sync"

// Queue holds the per-pool FIFO waiting lists. An identity occupies at most
// one pool's queue at a time; enqueueing again moves it to the back.
type Queue struct {
	mu      sync.Mutex
	waiting map[string][]string // pool code -> userIDs, FIFO
	byUser  map[string]string   // userID -> pool code

	pairMu sync.Mutex
	pairs  map[string]*sync.Mutex // per-pool pairing locks
}

func NewQueue() *Queue {
	return &Queue{
		waiting: make(map[string][]string),
		byUser:  make(map[string]string),
		pairs:   make(map[string]*sync.Mutex),
	}
}

// Enqueue places the identity at the back of the pool's queue, removing it
// from any queue it already occupies.
func (q *Queue) Enqueue(userID, code string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(userID)
	q.waiting[code] = append(q.waiting[code], userID)
	q.byUser[userID] = code
}

// Remove drops the identity from whichever queue it occupies. Safe to call
// when not queued; reports whether an entry was removed.
func (q *Queue) Remove(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(userID)
}

func (q *Queue) removeLocked(userID string) bool {
	code, ok := q.byUser[userID]
	if !ok {
		return false
	}
	delete(q.byUser, userID)
	entries := q.waiting[code]
	for i, id := range entries {
		if id == userID {
			q.waiting[code] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(q.waiting[code]) == 0 {
		delete(q.waiting, code)
	}
	return true
}

// Position returns the pool and 1-based FIFO position of a queued identity.
func (q *Queue) Position(userID string) (string, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	code, ok := q.byUser[userID]
	if !ok {
		return "", 0, false
	}
	for i, id := range q.waiting[code] {
		if id == userID {
			return code, i + 1, true
		}
	}
	return "", 0, false
}

// PopPair purges stale entries from the pool's queue and pops the two
// longest-waiting valid identities, strictly FIFO. Entries failing the
// valid predicate are discarded.
func (q *Queue) PopPair(code string, valid func(userID string) bool) (string, string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.waiting[code][:0]
	for _, id := range q.waiting[code] {
		if valid(id) {
			kept = append(kept, id)
		} else {
			delete(q.byUser, id)
		}
	}
	q.waiting[code] = kept
	if len(kept) < 2 {
		if len(kept) == 0 {
			delete(q.waiting, code)
		}
		return "", "", false
	}
	a, b := kept[0], kept[1]
	q.waiting[code] = append(kept[:0:0], kept[2:]...)
	if len(q.waiting[code]) == 0 {
		delete(q.waiting, code)
	}
	delete(q.byUser, a)
	delete(q.byUser, b)
	return a, b, true
}

// Counts reports queue depth per pool for the lobby projection.
func (q *Queue) Counts() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	counts := make(map[string]int, len(q.waiting))
	for code, entries := range q.waiting {
		counts[code] = len(entries)
	}
	return counts
}

// PairingLock returns the pool's exclusive matching-loop lock. It is held
// for a whole pairing pass, including the awaited pool snapshot load, so
// two overlapping enqueues cannot both pair the same queue tail.
func (q *Queue) PairingLock(code string) *sync.Mutex {
	q.pairMu.Lock()
	defer q.pairMu.Unlock()
	lock, ok := q.pairs[code]
	if !ok {
		lock = &sync.Mutex{}
		q.pairs[code] = lock
	}
	return lock
}
