package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"brawl-service/internal/app"
	"brawl-service/internal/config"
	"brawl-service/internal/domain"
	"brawl-service/internal/infra/memory"
	pgstore "brawl-service/internal/infra/postgres"
	redisstore "brawl-service/internal/infra/redis"
	transport "brawl-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the brawl server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pgPool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pgPool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.PoolLoader = memory.NewStaticPoolLoader(samplePools())
	if pgPool != nil {
		loader = pgstore.NewPoolLoader(pgPool)
	}

	poolTTL := config.Duration(cfg.Pool.TTL, 10*time.Minute)
	var pools app.PoolRepository
	if redisClient != nil {
		pools = redisstore.NewPoolRepository(redisClient, loader, poolTTL)
	} else {
		pools = memory.NewPoolRepository(loader, poolTTL)
	}

	var sink app.OutcomeSink = memory.NewOutcomeSink()
	if pgPool != nil {
		sink = pgstore.NewOutcomeSink(pgPool)
	}

	var tokens app.TokenResolver
	if redisClient != nil {
		tokens = redisstore.NewSessionStore(redisClient)
	} else {
		tokens = memory.NewSessionStore(sampleSessions())
	}

	service := app.NewBrawlService(pools, sink, app.Options{
		TargetScore: cfg.Brawl.TargetScore,
		GracePeriod: config.Duration(cfg.Brawl.GracePeriod, 30*time.Second),
		RoundDelay:  config.Duration(cfg.Brawl.RoundDelay, 3*time.Second),
	})
	wsHandler := transport.NewWSHandler(service, tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting brawl service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// samplePools provides a minimal pool so the engine is playable without
// Postgres; swap the loader for the JSONB-backed one in production.
func samplePools() map[string]domain.Pool {
	return map[string]domain.Pool{
		"demo": {
			Code:   "demo",
			Title:  "Demo Pool",
			Status: domain.PoolPublished,
			Questions: []domain.Question{
				{
					ID:      "q1",
					Type:    domain.SingleChoice,
					Content: "What is 2 + 2?",
					Choices: []domain.Choice{
						{ID: "a", Text: "3"},
						{ID: "b", Text: "4"},
						{ID: "c", Text: "5"},
					},
					Answer: []string{"b"},
				},
				{
					ID:      "q2",
					Type:    domain.TrueFalse,
					Content: "The capital of France is Paris.",
					Choices: []domain.Choice{
						{ID: "true", Text: "True"},
						{ID: "false", Text: "False"},
					},
					Answer: []string{"true"},
				},
				{
					ID:      "q3",
					Type:    domain.MultiChoice,
					Content: "Which of these are prime numbers?",
					Choices: []domain.Choice{
						{ID: "a", Text: "2"},
						{ID: "b", Text: "4"},
						{ID: "c", Text: "5"},
						{ID: "d", Text: "9"},
					},
					Answer: []string{"a", "c"},
				},
			},
		},
	}
}

// sampleSessions seeds dev tokens when no Redis-backed auth store is wired.
func sampleSessions() map[string]domain.Identity {
	return map[string]domain.Identity{
		"dev-alice": {UserID: "u1", DisplayName: "Alice"},
		"dev-bob":   {UserID: "u2", DisplayName: "Bob"},
	}
}
