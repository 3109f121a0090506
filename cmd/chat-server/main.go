package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"livechat-backend/internal/ai"
	"livechat-backend/internal/api"
	"livechat-backend/internal/api/router"
	"livechat-backend/internal/database"
	"livechat-backend/internal/env"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/service/catalog"
	"livechat-backend/internal/service/chat"
	"livechat-backend/internal/service/presence"
	"livechat-backend/internal/session"

	"github.com/go-redis/redis/v8"
)

func main() {
	env.MustValidate()

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     env.Get(env.SessionRedisURL),
		Password: env.Get(env.SessionRedisPass),
	})
	session.Configure(env.Get(env.AgentSecretKey), redisClient)
	session.ConfigureWidgetSecret(env.Get(env.WidgetSecretKey))

	chatService := chat.NewService(chat.NewDynamoRepository(db))
	presenceService := presence.NewService(presence.NewRedisStore(redisClient))
	catalogService := catalog.NewService(catalog.NewDynamoRepository(db))

	var responder *ai.Responder
	if key := env.Get(env.OpenAIKey); key != "" {
		aiClient := ai.NewClient(key, env.Get(env.OpenAIModel))
		responder = ai.NewResponder(
			aiClient,
			chatService,
			presenceService,
			ai.ParseMode(env.GetOrDefault(env.AIMode, "off")),
			env.Get(env.AISystemPrompt),
		)
	}

	go runRetentionSweeper(chatService)

	server := api.NewAPIServer(
		env.GetOrDefault(env.ListenAddr, ":81"),
		queueManager,
		db,
		chatService,
		presenceService,
		catalogService,
		responder,
		router.UtilsRoutes("/api/chat/v1"),
		router.ChatRoutes("/api/chat/v1"),
		router.InboxRoutes("/api/chat/v1"),
	)

	server.Run()
}

func runRetentionSweeper(chatService *chat.Service) {
	days, err := strconv.Atoi(env.GetOrDefault(env.RetentionDays, "30"))
	if err != nil || days <= 0 {
		log.Printf("retention sweeper disabled: RETENTION_DAYS=%q", env.Get(env.RetentionDays))
		return
	}
	retention := time.Duration(days) * 24 * time.Hour

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		deleted, err := chatService.RetentionSweep(ctx, retention)
		cancel()
		if err != nil {
			log.Printf("retention sweep failed: %v", err)
			continue
		}
		if deleted > 0 {
			log.Printf("retention sweep removed %d rows", deleted)
		}
	}
}
