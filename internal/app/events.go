package app

import (
	"time"

	"brawl-service/internal/domain"
)

// Event is an outbound message routed to one or more connections. The
// transport layer encodes it as a {type, payload} JSON envelope.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Outbound event types.
const (
	EventSelectedSet    = "selected-set"
	EventQueueStatus    = "queue-status"
	EventLobbyState     = "lobby-state"
	EventMatchFound     = "match-found"
	EventNewQuestion    = "new-question"
	EventRoundLocked    = "round-locked"
	EventRoundResult    = "round-result"
	EventMatchFinished  = "match-finished"
	EventPlayerPresence = "player-presence"
	EventMatchResume    = "match-resume"
	EventAuthRequired   = "auth-required"
	EventError          = "error"
)

// QuestionView is the client-facing projection of a question. The canonical
// answer is stripped; it is only revealed in round-result.
type QuestionView struct {
	ID      string              `json:"id"`
	Type    domain.QuestionType `json:"type"`
	Content string              `json:"content"`
	Choices []domain.Choice     `json:"choices"`
}

func viewOf(q domain.Question) QuestionView {
	return QuestionView{ID: q.ID, Type: q.Type, Content: q.Content, Choices: q.Choices}
}

type SelectedSetPayload struct {
	Code string `json:"code"`
}

type QueueStatusPayload struct {
	Queued   bool   `json:"queued"`
	SetCode  string `json:"setCode,omitempty"`
	Position int    `json:"position,omitempty"`
}

type LobbyStatePayload struct {
	OnlineCounts map[string]int `json:"onlineCounts"`
	QueueCounts  map[string]int `json:"queueCounts"`
}

type MatchFoundPayload struct {
	MatchID     string          `json:"matchId"`
	Opponent    domain.Identity `json:"opponent"`
	TargetScore int             `json:"targetScore"`
	Scores      map[string]int  `json:"scores"`
}

type NewQuestionPayload struct {
	Round    int            `json:"round"`
	Question QuestionView   `json:"question"`
	Scores   map[string]int `json:"scores"`
}

type RoundLockedPayload struct {
	Round    int    `json:"round"`
	LockedBy string `json:"lockedBy"`
}

type RoundResultPayload struct {
	Round         int            `json:"round"`
	Passed        bool           `json:"passed"`
	ScoredUserID  string         `json:"scoredUserId"`
	Scores        map[string]int `json:"scores"`
	CorrectAnswer []string       `json:"correctAnswer"`
}

type MatchFinishedPayload struct {
	Reason       string         `json:"reason"`
	WinnerUserID string         `json:"winnerUserId,omitempty"`
	Scores       map[string]int `json:"scores"`
}

type PlayerPresencePayload struct {
	UserID               string     `json:"userId"`
	Connected            bool       `json:"connected"`
	DisconnectDeadlineAt *time.Time `json:"disconnectDeadlineAt,omitempty"`
}

// MatchResumePayload replays the full match view to a reconnecting identity
// so a refreshed client can rebuild its state without losing round context.
type MatchResumePayload struct {
	MatchID     string                  `json:"matchId"`
	Opponent    domain.Identity         `json:"opponent"`
	TargetScore int                     `json:"targetScore"`
	Scores      map[string]int          `json:"scores"`
	Round       int                     `json:"round,omitempty"`
	Question    *QuestionView           `json:"question,omitempty"`
	LockedBy    string                  `json:"lockedBy,omitempty"`
	Presence    []PlayerPresencePayload `json:"presence"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ErrorEvent wraps a non-fatal error for the offending connection.
func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Message: msg}}
}
