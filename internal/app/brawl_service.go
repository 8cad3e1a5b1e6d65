package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"brawl-service/internal/domain"
)

// PoolRepository loads question pools (from cache/backing store).
type PoolRepository interface {
	GetPool(ctx context.Context, code string) (domain.Pool, error)
}

// OutcomeSink durably records a finished match. Failures are logged and
// swallowed by the caller; they never affect the in-memory lifecycle.
type OutcomeSink interface {
	Record(ctx context.Context, record domain.MatchRecord) error
}

// TokenResolver maps a session credential to an identity. Backed by the
// external auth service's session storage.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

// Options tunes the duel rules and supervision windows.
type Options struct {
	TargetScore int
	GracePeriod time.Duration
	RoundDelay  time.Duration
}

func (o Options) withDefaults() Options {
	if o.TargetScore <= 0 {
		o.TargetScore = 5
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = 30 * time.Second
	}
	if o.RoundDelay < 0 {
		o.RoundDelay = 0
	}
	return o
}

// BrawlService owns all shared duel state: the connection registry, the
// per-pool matchmaking queues and the live match registry. Constructed once
// at process start and injected into the transport.
type BrawlService struct {
	opts     Options
	registry *Registry
	queue    *Queue
	pools    PoolRepository
	sink     OutcomeSink

	mu      sync.RWMutex
	matches map[string]*Match // matchID -> match
	byUser  map[string]*Match // userID -> active match
}

func NewBrawlService(pools PoolRepository, sink OutcomeSink, opts Options) *BrawlService {
	return &BrawlService{
		opts:     opts.withDefaults(),
		registry: NewRegistry(),
		queue:    NewQueue(),
		pools:    pools,
		sink:     sink,
		matches:  make(map[string]*Match),
		byUser:   make(map[string]*Match),
	}
}

// Connect registers an authenticated connection. A reconnecting participant
// of an active match gets its grace timer cancelled and a full resume
// snapshot; everyone else receives the current lobby state.
func (s *BrawlService) Connect(c Client, id domain.Identity) {
	s.registry.Register(c, id)
	if m := s.matchOf(id.UserID); m != nil {
		m.PlayerReturned(id.UserID)
	} else {
		c.Send(s.lobbyEvent())
	}
	s.broadcastLobby()
}

// Disconnect tears a connection down. Once the identity's last connection
// is gone it is fully offline: dequeued, deselected, and handed to
// disconnect supervision if inside an active match.
func (s *BrawlService) Disconnect(c Client) {
	id, last := s.registry.Unregister(c)
	if !last {
		return
	}
	s.queue.Remove(id.UserID)
	if m := s.matchOf(id.UserID); m != nil {
		m.PlayerLost(id.UserID)
	}
	s.broadcastLobby()
}

// SelectPool sets or clears the identity's pool selection. Rejected while
// the identity is inside an active match; switching pools implicitly
// dequeues from the previous one.
func (s *BrawlService) SelectPool(ctx context.Context, userID, code string) error {
	if s.matchOf(userID) != nil {
		return domain.ErrInMatch
	}
	if code == "" {
		s.queue.Remove(userID)
		s.registry.Select(userID, "")
		s.broadcastLobby()
		return nil
	}
	pool, err := s.pools.GetPool(ctx, code)
	if err != nil {
		return err
	}
	if !pool.Eligible() {
		return domain.ErrPoolUnavailable
	}
	if prev, ok := s.registry.Selection(userID); ok && prev != code {
		s.queue.Remove(userID)
	}
	s.registry.Select(userID, code)
	s.broadcastLobby()
	return nil
}

// Enqueue places the identity on its selected pool's queue and runs the
// matching loop for that pool. Re-enqueueing moves the entry to the back.
func (s *BrawlService) Enqueue(ctx context.Context, userID string) error {
	if s.matchOf(userID) != nil {
		return domain.ErrInMatch
	}
	code, ok := s.registry.Selection(userID)
	if !ok {
		return domain.ErrNoSelection
	}
	pool, err := s.pools.GetPool(ctx, code)
	if err != nil {
		return err
	}
	if !pool.Eligible() {
		return domain.ErrPoolUnavailable
	}
	s.queue.Enqueue(userID, code)
	s.sendQueueStatus(userID)
	s.broadcastLobby()
	s.matchPool(ctx, code)
	return nil
}

// Dequeue removes the identity from its queue. A no-op when not queued.
func (s *BrawlService) Dequeue(userID string) {
	removed := s.queue.Remove(userID)
	s.sendQueueStatus(userID)
	if removed {
		s.broadcastLobby()
	}
}

// SubmitAnswer routes a submission to the identity's active match.
func (s *BrawlService) SubmitAnswer(userID, matchID string, answers []string) error {
	m := s.matchOf(userID)
	if m == nil || m.ID() != matchID {
		return domain.ErrMatchNotFound
	}
	return m.Submit(userID, answers)
}

// ActiveMatch returns the identity's live match, if any.
func (s *BrawlService) ActiveMatch(userID string) (*Match, bool) {
	m := s.matchOf(userID)
	return m, m != nil
}

// matchPool drains pairs from one pool's queue under its exclusive pairing
// lock. The lock spans the awaited pool snapshot load so two overlapping
// invocations cannot both observe the same two-entry queue.
func (s *BrawlService) matchPool(ctx context.Context, code string) {
	lock := s.queue.PairingLock(code)
	lock.Lock()
	defer lock.Unlock()

	for {
		a, b, ok := s.queue.PopPair(code, func(userID string) bool {
			if !s.registry.Online(userID) {
				return false
			}
			if sel, ok := s.registry.Selection(userID); !ok || sel != code {
				return false
			}
			return s.matchOf(userID) == nil
		})
		if !ok {
			return
		}
		s.createMatch(ctx, code, a, b)
	}
}

func (s *BrawlService) createMatch(ctx context.Context, code, userA, userB string) {
	pool, err := s.pools.GetPool(ctx, code)
	if err == nil && len(pool.Questions) == 0 {
		err = errors.New("pool has no usable questions")
	}
	if err != nil {
		log.Printf("pairing on pool %s failed: %v", code, err)
		ev := ErrorEvent("could not start match: " + err.Error())
		s.registry.SendToUser(userA, ev)
		s.registry.SendToUser(userB, ev)
		return
	}

	idA, idB := s.registry.IdentityOf(userA), s.registry.IdentityOf(userB)
	m := newMatch(uuid.NewString(), pool, idA, idB, s.opts, s.registry, s.sink, s.removeMatch)

	s.mu.Lock()
	s.matches[m.ID()] = m
	s.byUser[userA] = m
	s.byUser[userB] = m
	s.mu.Unlock()

	log.Printf("match %s created on pool %s: %s vs %s", m.ID(), code, userA, userB)
	// A participant can drop between the queue validity check and the match
	// registration above; such a disconnect misses the byUser lookup, so
	// hand it to supervision before the first round is dispatched.
	for _, userID := range []string{userA, userB} {
		if !s.registry.Online(userID) {
			m.PlayerLost(userID)
		}
	}
	m.Start()
	s.broadcastLobby()
}

// removeMatch releases a finalized match's registrations. Invoked exactly
// once per match, from finalize.
func (s *BrawlService) removeMatch(m *Match) {
	s.mu.Lock()
	delete(s.matches, m.ID())
	for userID, active := range s.byUser {
		if active == m {
			delete(s.byUser, userID)
		}
	}
	s.mu.Unlock()
	s.broadcastLobby()
}

func (s *BrawlService) matchOf(userID string) *Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byUser[userID]
}

func (s *BrawlService) sendQueueStatus(userID string) {
	status := QueueStatusPayload{}
	if code, pos, ok := s.queue.Position(userID); ok {
		status = QueueStatusPayload{Queued: true, SetCode: code, Position: pos}
	}
	s.registry.SendToUser(userID, Event{Type: EventQueueStatus, Payload: status})
}

func (s *BrawlService) lobbyEvent() Event {
	return Event{Type: EventLobbyState, Payload: LobbyStatePayload{
		OnlineCounts: s.registry.OnlineCounts(),
		QueueCounts:  s.queue.Counts(),
	}}
}

// broadcastLobby republishes the aggregate lobby projection to everyone.
// It is advisory state; clients must not treat it as authoritative.
func (s *BrawlService) broadcastLobby() {
	s.registry.Broadcast(s.lobbyEvent())
}
