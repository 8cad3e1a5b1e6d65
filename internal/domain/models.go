package domain

import "time"

// Identity is the authenticated user behind a connection, issued by the
// external auth service and resolved from a session token.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// QuestionType discriminates how a submission is evaluated.
type QuestionType string

const (
	SingleChoice QuestionType = "single-choice"
	MultiChoice  QuestionType = "multi-choice"
	TrueFalse    QuestionType = "true-false"
)

// Choice represents a selectable option of a question.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is an immutable value drawn from a pool. Answer holds the
// canonical choice IDs: exactly one for single-choice and true-false,
// one or more for multi-choice.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Content string       `json:"content"`
	Choices []Choice     `json:"choices"`
	Answer  []string     `json:"answer"`
}

// PoolStatus marks whether identities may queue on a pool.
type PoolStatus string

const (
	PoolPublished PoolStatus = "published"
	PoolPending   PoolStatus = "pending"
)

// Pool is a named collection of quiz questions owned by the pool storage
// collaborator. Matches snapshot Questions at creation time and never
// re-read mid-match.
type Pool struct {
	Code      string     `json:"code"`
	Title     string     `json:"title"`
	Status    PoolStatus `json:"status"`
	Questions []Question `json:"questions"`
}

// Eligible reports whether the pool may be selected and queued on.
func (p Pool) Eligible() bool {
	return p.Status == PoolPublished
}

// Match termination reasons carried in match-finished events and records.
const (
	ReasonTargetScore       = "target-score"
	ReasonDisconnectTimeout = "disconnect-timeout"
	ReasonNoQuestions       = "no-questions"
)

// MatchRecord is the finished-match document handed to the outcome sink.
// WinnerID is empty when the match ended with no winner.
type MatchRecord struct {
	MatchID   string    `json:"matchId"`
	PoolCode  string    `json:"poolCode"`
	PoolTitle string    `json:"poolTitle"`
	Player1   Identity  `json:"player1"`
	Player2   Identity  `json:"player2"`
	Score1    int       `json:"score1"`
	Score2    int       `json:"score2"`
	WinnerID  string    `json:"winnerId"`
	Reason    string    `json:"reason"`
	EndedAt   time.Time `json:"endedAt"`
}
