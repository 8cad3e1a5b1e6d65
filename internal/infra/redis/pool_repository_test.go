package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"brawl-service/internal/domain"
	"brawl-service/internal/infra/memory"
)

func TestPoolRepositoryCachesSnapshotInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		PoolLoader: memory.NewStaticPoolLoader(map[string]domain.Pool{
			"pool-1": samplePool(),
		}),
	}
	repo := NewPoolRepository(client, loader, time.Minute)

	pool, err := repo.GetPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(pool.Questions) != 1 || pool.Questions[0].Answer[0] != "b" {
		t.Fatalf("snapshot must carry the full question list, got %+v", pool)
	}
	if !mr.Exists("pool:pool-1:snapshot") {
		t.Fatalf("expected snapshot key in redis")
	}

	// Second call should hit cache, loader not incremented.
	if _, err := repo.GetPool(context.Background(), "pool-1"); err != nil {
		t.Fatalf("get pool 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.PoolLoader
	calls int
}

func (l *countingLoader) LoadPool(ctx context.Context, code string) (domain.Pool, error) {
	l.calls++
	return l.PoolLoader.LoadPool(ctx, code)
}

func samplePool() domain.Pool {
	return domain.Pool{
		Code:   "pool-1",
		Title:  "Pool One",
		Status: domain.PoolPublished,
		Questions: []domain.Question{
			{
				ID:      "q1",
				Type:    domain.SingleChoice,
				Content: "What is 2 + 2?",
				Choices: []domain.Choice{
					{ID: "a", Text: "3"},
					{ID: "b", Text: "4"},
				},
				Answer: []string{"b"},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
