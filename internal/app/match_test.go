package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"brawl-service/internal/domain"
)

type recordingClient struct {
	mu     sync.Mutex
	events []Event
}

func (c *recordingClient) Send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *recordingClient) count(typ string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type sinkStub struct{}

func (sinkStub) Record(context.Context, domain.MatchRecord) error { return nil }

// A player can already be gone when a match starts (dropped inside the
// pairing window). The first round must wait for both sides, exactly like a
// mid-match disconnect.
func TestStartDefersDispatchWhilePlayerDisconnected(t *testing.T) {
	reg := NewRegistry()
	c1 := &recordingClient{}
	reg.Register(c1, domain.Identity{UserID: "u1", DisplayName: "Alice"})

	pool := domain.Pool{
		Code:   "pool-1",
		Status: domain.PoolPublished,
		Questions: []domain.Question{
			{ID: "q1", Type: domain.SingleChoice, Answer: []string{"a"}},
		},
	}
	m := newMatch("m1", pool,
		domain.Identity{UserID: "u1", DisplayName: "Alice"},
		domain.Identity{UserID: "u2", DisplayName: "Bob"},
		Options{TargetScore: 5, GracePeriod: time.Minute}, reg, sinkStub{}, nil)

	m.PlayerLost("u2")
	m.Start()

	if c1.count(EventMatchFound) != 1 {
		t.Fatalf("expected match-found despite the absent opponent")
	}
	if c1.count(EventNewQuestion) != 0 {
		t.Fatalf("round must not be dispatched while a player is disconnected")
	}

	c2 := &recordingClient{}
	reg.Register(c2, domain.Identity{UserID: "u2", DisplayName: "Bob"})
	m.PlayerReturned("u2")

	if c1.count(EventNewQuestion) != 1 || c2.count(EventNewQuestion) != 1 {
		t.Fatalf("expected the deferred round dispatched to both players")
	}
}

func TestEvaluateAnswer(t *testing.T) {
	single := domain.Question{Type: domain.SingleChoice, Answer: []string{"b"}}
	multi := domain.Question{Type: domain.MultiChoice, Answer: []string{"a", "c"}}
	boolean := domain.Question{Type: domain.TrueFalse, Answer: []string{"true"}}

	cases := []struct {
		name     string
		question domain.Question
		answers  []string
		want     bool
	}{
		{"single correct", single, []string{"b"}, true},
		{"single wrong", single, []string{"a"}, false},
		{"single empty", single, nil, false},
		{"single multiple values", single, []string{"a", "b"}, false},
		{"true-false correct", boolean, []string{"true"}, true},
		{"true-false wrong", boolean, []string{"false"}, false},
		{"multi exact set", multi, []string{"a", "c"}, true},
		{"multi order independent", multi, []string{"c", "a"}, true},
		{"multi subset", multi, []string{"a"}, false},
		{"multi superset", multi, []string{"a", "c", "d"}, false},
		{"multi duplicate padding", multi, []string{"a", "a"}, false},
		{"multi wrong member", multi, []string{"a", "d"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := evaluateAnswer(tc.question, tc.answers); got != tc.want {
				t.Fatalf("evaluateAnswer(%v) = %v, want %v", tc.answers, got, tc.want)
			}
		})
	}
}
