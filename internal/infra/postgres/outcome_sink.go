package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"brawl-service/internal/domain"
)

// OutcomeSink persists finished-match records. Writes are best-effort from
// the match's point of view; the caller logs and swallows failures.
type OutcomeSink struct {
	pool *pgxpool.Pool
}

func NewOutcomeSink(pool *pgxpool.Pool) *OutcomeSink {
	return &OutcomeSink{pool: pool}
}

func (s *OutcomeSink) Record(ctx context.Context, r domain.MatchRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_records
			(match_id, pool_code, pool_title, player1_id, player1_name, player2_id, player2_name,
			 score1, score2, winner_id, reason, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),$11,$12)
		ON CONFLICT (match_id) DO NOTHING`,
		r.MatchID, r.PoolCode, r.PoolTitle,
		r.Player1.UserID, r.Player1.DisplayName,
		r.Player2.UserID, r.Player2.DisplayName,
		r.Score1, r.Score2, r.WinnerID, r.Reason, r.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("record match outcome: %w", err)
	}
	return nil
}
