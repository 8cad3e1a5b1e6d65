package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"brawl-service/internal/domain"
)

// PoolLoader loads pool JSONB from Postgres. Status lives in its own column
// so pending pools can be filtered without parsing the document.
type PoolLoader struct {
	pool *pgxpool.Pool
}

func NewPoolLoader(pool *pgxpool.Pool) *PoolLoader {
	return &PoolLoader{pool: pool}
}

func (l *PoolLoader) LoadPool(ctx context.Context, code string) (domain.Pool, error) {
	var raw []byte
	var status string
	err := l.pool.QueryRow(ctx, `SELECT data, status FROM pools WHERE code=$1`, code).Scan(&raw, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Pool{}, domain.ErrPoolNotFound
	}
	if err != nil {
		return domain.Pool{}, fmt.Errorf("load pool: %w", err)
	}
	var pool domain.Pool
	if err := json.Unmarshal(raw, &pool); err != nil {
		return domain.Pool{}, fmt.Errorf("unmarshal pool: %w", err)
	}
	pool.Code = code
	pool.Status = domain.PoolStatus(status)
	return pool, nil
}
