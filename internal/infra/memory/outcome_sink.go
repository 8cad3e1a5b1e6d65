package memory

import (
	"context"
	"sync"

	"brawl-service/internal/domain"
)

// OutcomeSink collects finished-match records in memory. Used in tests and
// when no Postgres is configured.
type OutcomeSink struct {
	mu      sync.Mutex
	records []domain.MatchRecord
}

func NewOutcomeSink() *OutcomeSink {
	return &OutcomeSink{}
}

func (s *OutcomeSink) Record(_ context.Context, record domain.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything recorded so far.
func (s *OutcomeSink) Records() []domain.MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MatchRecord, len(s.records))
	copy(out, s.records)
	return out
}
