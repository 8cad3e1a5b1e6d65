package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"brawl-service/internal/domain"
)

// Player is one side of a match. Score only ever increases, by exactly one
// per round the player is credited for.
type Player struct {
	Identity  domain.Identity
	Score     int
	Connected bool
	Deadline  time.Time

	graceTimer *time.Timer
}

// Round is one question cycle: open until a first valid submission locks
// it, then resolved with exactly one credit event. Never reopened.
type Round struct {
	Number   int
	Question domain.Question
	LockedBy string
	Resolved bool

	questionIdx int
}

// Match owns the lifecycle of one active duel: round progression, answer
// locking, scoring, disconnect supervision and termination. All state is
// guarded by a single mutex; the grace and inter-round timers re-acquire
// it and re-validate before acting, which makes reconnection and timeout
// expiry mutually exclusive.
type Match struct {
	id        string
	poolCode  string
	poolTitle string
	opts      Options

	registry   *Registry
	sink       OutcomeSink
	onFinished func(*Match)

	mu         sync.Mutex
	players    [2]*Player
	questions  []domain.Question
	used       map[int]struct{}
	roundIndex int
	current    *Round
	finished   bool
	deferred   bool // dispatch requested while a player was in grace
	roundTimer *time.Timer
	rnd        *rand.Rand
}

func newMatch(id string, pool domain.Pool, p1, p2 domain.Identity, opts Options, registry *Registry, sink OutcomeSink, onFinished func(*Match)) *Match {
	return &Match{
		id:         id,
		poolCode:   pool.Code,
		poolTitle:  pool.Title,
		opts:       opts,
		registry:   registry,
		sink:       sink,
		onFinished: onFinished,
		players: [2]*Player{
			{Identity: p1, Connected: true},
			{Identity: p2, Connected: true},
		},
		questions: pool.Questions,
		used:      make(map[int]struct{}),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ID returns the match identifier.
func (m *Match) ID() string {
	return m.id
}

// Start announces the pairing to both players and dispatches the first round.
func (m *Match) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	scores := m.scoresLocked()
	for i, p := range m.players {
		opp := m.players[1-i]
		m.registry.SendToUser(p.Identity.UserID, Event{Type: EventMatchFound, Payload: MatchFoundPayload{
			MatchID:     m.id,
			Opponent:    opp.Identity,
			TargetScore: m.opts.TargetScore,
			Scores:      scores,
		}})
	}
	m.dispatchLocked()
}

// Submit attempts to lock and resolve the current round with the identity's
// answer. Late submissions to an already locked round and duplicates by the
// lock holder are silently ignored; submissions with no open round surface
// a non-fatal error to the caller.
func (m *Match) Submit(userID string, answers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return domain.ErrMatchNotFound
	}
	if m.current == nil {
		return domain.ErrNoOpenRound
	}
	// A lost race against the lock holder, a duplicate by the holder, or a
	// submission to a round resolved while the client was catching up: all
	// ignored, never scored, never an error.
	if m.current.Resolved || m.current.LockedBy != "" {
		return nil
	}
	m.current.LockedBy = userID
	m.broadcastLocked(Event{Type: EventRoundLocked, Payload: RoundLockedPayload{Round: m.current.Number, LockedBy: userID}})

	submitter, opponent := m.sidesLocked(userID)
	correct := evaluateAnswer(m.current.Question, answers)
	credited := submitter
	if !correct {
		credited = opponent
	}
	credited.Score++
	m.current.Resolved = true

	result := RoundResultPayload{
		Round:         m.current.Number,
		Passed:        correct,
		ScoredUserID:  credited.Identity.UserID,
		Scores:        m.scoresLocked(),
		CorrectAnswer: m.current.Question.Answer,
	}
	m.broadcastLocked(Event{Type: EventRoundResult, Payload: result})

	if credited.Score >= m.opts.TargetScore {
		m.finalizeLocked(domain.ReasonTargetScore, credited.Identity.UserID)
		return nil
	}
	m.roundTimer = time.AfterFunc(m.opts.RoundDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.roundTimer = nil
		m.dispatchLocked()
	})
	return nil
}

// PlayerLost marks the identity's side disconnected and starts the grace
// timer. Round dispatch is paused until the player returns; the currently
// open round is preserved as-is.
func (m *Match) PlayerLost(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return
	}
	p, _ := m.sidesLocked(userID)
	if p == nil || !p.Connected {
		return
	}
	p.Connected = false
	p.Deadline = time.Now().Add(m.opts.GracePeriod)
	deadline := p.Deadline
	m.broadcastLocked(Event{Type: EventPlayerPresence, Payload: PlayerPresencePayload{
		UserID:               userID,
		Connected:            false,
		DisconnectDeadlineAt: &deadline,
	}})
	p.graceTimer = time.AfterFunc(m.opts.GracePeriod, func() {
		m.expireGrace(userID)
	})
}

// PlayerReturned resumes the identity's side if it was in a grace period
// and replays the full match snapshot to the (re)connecting identity.
func (m *Match) PlayerReturned(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return
	}
	p, opp := m.sidesLocked(userID)
	if p == nil {
		return
	}
	if !p.Connected {
		if p.graceTimer != nil {
			p.graceTimer.Stop()
			p.graceTimer = nil
		}
		p.Connected = true
		p.Deadline = time.Time{}
		m.broadcastLocked(Event{Type: EventPlayerPresence, Payload: PlayerPresencePayload{
			UserID:    userID,
			Connected: true,
		}})
	}

	resume := MatchResumePayload{
		MatchID:     m.id,
		Opponent:    opp.Identity,
		TargetScore: m.opts.TargetScore,
		Scores:      m.scoresLocked(),
		Presence:    m.presenceLocked(),
	}
	if m.current != nil && !m.current.Resolved {
		view := viewOf(m.current.Question)
		resume.Round = m.current.Number
		resume.Question = &view
		resume.LockedBy = m.current.LockedBy
	}
	m.registry.SendToUser(userID, Event{Type: EventMatchResume, Payload: resume})

	if m.deferred {
		m.dispatchLocked()
	}
}

// HasPlayer reports whether the identity participates in this match.
func (m *Match) HasPlayer(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, _ := m.sidesLocked(userID)
	return p != nil
}

// Scores returns the current score per userID.
func (m *Match) Scores() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scoresLocked()
}

// Close tears the match down without a winner, cancelling every timer.
func (m *Match) Close(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalizeLocked(reason, "")
}

// expireGrace is the grace timer callback. Reconnection cancels the timer
// under the match mutex, and the callback re-checks the side's state before
// forfeiting, so the two paths can never both act.
func (m *Match) expireGrace(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return
	}
	p, survivor := m.sidesLocked(userID)
	if p == nil || p.Connected {
		return
	}
	if survivor.Score < m.opts.TargetScore {
		survivor.Score = m.opts.TargetScore
	}
	m.finalizeLocked(domain.ReasonDisconnectTimeout, survivor.Identity.UserID)
}

// dispatchLocked opens the next round if the match is live, no round is
// open, and both players are connected. Question selection is uniform over
// the unused subset; the used set resets only once it covers the pool, so
// no question repeats before a full cycle.
func (m *Match) dispatchLocked() {
	if m.finished || (m.current != nil && !m.current.Resolved) {
		return
	}
	if !m.players[0].Connected || !m.players[1].Connected {
		m.deferred = true
		return
	}
	m.deferred = false
	if len(m.questions) == 0 {
		m.finalizeLocked(domain.ReasonNoQuestions, "")
		return
	}
	if len(m.used) == len(m.questions) {
		m.used = make(map[int]struct{})
	}
	idx := m.pickQuestionLocked()
	m.used[idx] = struct{}{}
	m.roundIndex++
	m.current = &Round{
		Number:      m.roundIndex,
		Question:    m.questions[idx],
		questionIdx: idx,
	}
	m.broadcastLocked(Event{Type: EventNewQuestion, Payload: NewQuestionPayload{
		Round:    m.current.Number,
		Question: viewOf(m.current.Question),
		Scores:   m.scoresLocked(),
	}})
}

func (m *Match) pickQuestionLocked() int {
	unused := make([]int, 0, len(m.questions)-len(m.used))
	for i := range m.questions {
		if _, taken := m.used[i]; !taken {
			unused = append(unused, i)
		}
	}
	return unused[m.rnd.Intn(len(unused))]
}

// finalizeLocked flips the match to finished exactly once: stops every
// timer, broadcasts the terminal outcome, hands the record to the outcome
// sink without blocking on it and releases the service registrations.
func (m *Match) finalizeLocked(reason, winnerID string) {
	if m.finished {
		return
	}
	m.finished = true
	if m.roundTimer != nil {
		m.roundTimer.Stop()
		m.roundTimer = nil
	}
	for _, p := range m.players {
		if p.graceTimer != nil {
			p.graceTimer.Stop()
			p.graceTimer = nil
		}
	}
	m.broadcastLocked(Event{Type: EventMatchFinished, Payload: MatchFinishedPayload{
		Reason:       reason,
		WinnerUserID: winnerID,
		Scores:       m.scoresLocked(),
	}})

	record := domain.MatchRecord{
		MatchID:   m.id,
		PoolCode:  m.poolCode,
		PoolTitle: m.poolTitle,
		Player1:   m.players[0].Identity,
		Player2:   m.players[1].Identity,
		Score1:    m.players[0].Score,
		Score2:    m.players[1].Score,
		WinnerID:  winnerID,
		Reason:    reason,
		EndedAt:   time.Now(),
	}
	go func() {
		if err := m.sink.Record(context.Background(), record); err != nil {
			log.Printf("match %s: outcome not persisted: %v", record.MatchID, err)
		}
	}()

	if m.onFinished != nil {
		m.onFinished(m)
	}
}

func (m *Match) sidesLocked(userID string) (*Player, *Player) {
	switch userID {
	case m.players[0].Identity.UserID:
		return m.players[0], m.players[1]
	case m.players[1].Identity.UserID:
		return m.players[1], m.players[0]
	}
	return nil, nil
}

func (m *Match) scoresLocked() map[string]int {
	return map[string]int{
		m.players[0].Identity.UserID: m.players[0].Score,
		m.players[1].Identity.UserID: m.players[1].Score,
	}
}

func (m *Match) presenceLocked() []PlayerPresencePayload {
	out := make([]PlayerPresencePayload, 0, len(m.players))
	for _, p := range m.players {
		entry := PlayerPresencePayload{UserID: p.Identity.UserID, Connected: p.Connected}
		if !p.Connected {
			deadline := p.Deadline
			entry.DisconnectDeadlineAt = &deadline
		}
		out = append(out, entry)
	}
	return out
}

func (m *Match) broadcastLocked(ev Event) {
	for _, p := range m.players {
		m.registry.SendToUser(p.Identity.UserID, ev)
	}
}

// evaluateAnswer scores a submission against the canonical answer set:
// set equality for multi-choice, single value equality otherwise.
func evaluateAnswer(q domain.Question, answers []string) bool {
	if q.Type == domain.MultiChoice {
		if len(answers) != len(q.Answer) {
			return false
		}
		want := make(map[string]struct{}, len(q.Answer))
		for _, a := range q.Answer {
			want[a] = struct{}{}
		}
		seen := make(map[string]struct{}, len(answers))
		for _, a := range answers {
			if _, ok := want[a]; !ok {
				return false
			}
			if _, dup := seen[a]; dup {
				return false
			}
			seen[a] = struct{}{}
		}
		return true
	}
	return len(answers) == 1 && len(q.Answer) == 1 && answers[0] == q.Answer[0]
}
