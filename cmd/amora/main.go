// Package main boots the Amora companion API and wires application
// dependencies.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/amoralabs/amora/internal/ai"
	"github.com/amoralabs/amora/internal/auth"
	"github.com/amoralabs/amora/internal/character"
	"github.com/amoralabs/amora/internal/chat"
	"github.com/amoralabs/amora/internal/config"
	"github.com/amoralabs/amora/internal/emotion"
	"github.com/amoralabs/amora/internal/memory"
	"github.com/amoralabs/amora/internal/moderation"
	"github.com/amoralabs/amora/internal/repository"
	"github.com/amoralabs/amora/internal/server"
	"github.com/amoralabs/amora/internal/subscription"
	"github.com/amoralabs/amora/internal/worker"
	"github.com/amoralabs/amora/internal/ws"
)

func main() {
	seed := flag.Bool("seed", false, "seed the starter character catalog and exit")
	flag.Parse()

	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	slog.Info("configuration loaded", "chat_model", cfg.ChatModel, "embedding_model", cfg.EmbeddingModel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if *seed {
		if err := store.SeedCharacters(ctx); err != nil {
			log.Fatalf("failed to seed characters: %v", err)
		}
		slog.Info("seeding completed")
		return
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	aiClient := ai.NewClient(ai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.ChatModel,
		UtilityModel:   cfg.UtilityModel,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	generator := ai.NewGenerator(aiClient)

	memoryService := memory.NewService(store.Memories, store.Summaries, aiClient)
	subscriptionService := subscription.NewService(store.Subscriptions)
	limiter := subscription.NewRedisLimiter(rdb, subscriptionService)
	characterService := character.NewService(store.Characters)

	pool := worker.NewPool(cfg.MemoryQueueSize)
	pool.Start(ctx)

	chatService := chat.NewService(
		store.Chats,
		store.Messages,
		store.Characters,
		generator,
		memoryService,
		subscriptionService,
		limiter,
		moderation.NewFilter(),
		pool,
		emotion.NewAnalyzer(aiClient),
	)

	authService := auth.NewService(store.Users, auth.Config{
		JWTSecret:          cfg.JWTSecret,
		TokenTTL:           time.Duration(cfg.TokenTTLHours) * time.Hour,
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GoogleRedirectURL:  cfg.GoogleRedirectURL,
		AppleClientID:      cfg.AppleClientID,
		AppleTeamID:        cfg.AppleTeamID,
		AppleKeyID:         cfg.AppleKeyID,
		ApplePrivateKey:    cfg.ApplePrivateKey,
		AppleRedirectURL:   cfg.AppleRedirectURL,
	})

	origins := strings.Split(cfg.CORSOrigins, ",")
	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, chatService, authService, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range origins {
			if strings.TrimSpace(allowed) == origin {
				return true
			}
		}
		return false
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@daily", func() {
		expired, err := subscriptionService.ExpireDue(context.Background())
		if err != nil {
			slog.Error("subscription expiry sweep failed", "error", err)
			return
		}
		slog.Info("subscription expiry sweep finished", "expired", expired)
	}); err != nil {
		log.Fatalf("failed to schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(
		authService,
		store.Users,
		characterService,
		chatService,
		memoryService,
		subscriptionService,
		gateway,
	)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(origins),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	pool.Wait()
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
