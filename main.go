package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/domain-sentry/backend/internal/bus"
	"github.com/domain-sentry/backend/internal/client"
	"github.com/domain-sentry/backend/internal/config"
	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/handler"
	"github.com/domain-sentry/backend/internal/service"
)

func main() {
	// .env 로드 (없어도 무시)
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pg.Close()

	if err := pg.EnsureAlertSchema(); err != nil {
		log.Fatalf("failed to ensure alert schema: %v", err)
	}
	if err := pg.EnsureWebhookSchema(); err != nil {
		log.Fatalf("failed to ensure webhook schema: %v", err)
	}
	if err := pg.EnsureAuthSchema(); err != nil {
		log.Fatalf("failed to ensure auth schema: %v", err)
	}

	// --- 클라이언트 ---
	agentClient := client.NewAgentClient(cfg.Agent)
	suppressor := client.NewSuppressor(cfg.Redis)
	defer suppressor.Close()

	artifacts, err := client.NewArtifactStore(cfg.Artifact)
	if err != nil {
		log.Fatalf("failed to init artifact store: %v", err)
	}

	// --- 지식 베이스 (AI_API_KEY 없으면 비활성) ---
	var knowledge *service.KnowledgeService
	if cfg.Know.APIKey != "" {
		if err := pg.EnsureKnowledgeSchema(); err != nil {
			log.Fatalf("failed to ensure knowledge schema: %v", err)
		}
		embedder, err := client.NewEmbeddingClient(cfg.Know)
		if err != nil {
			log.Fatalf("failed to init embedding client: %v", err)
		}
		knowledge = service.NewKnowledgeService(embedder, pg, cfg.Know.TopK)
	} else {
		log.Printf("AI_API_KEY not set - knowledge base disabled")
	}

	// --- 알림 채널 ---
	notifier := service.NewNotifier(artifacts, cfg.Callback.PublicBaseURL, cfg.Callback.SigningSecret)

	slackClient := client.NewSlackClient(cfg.Slack)
	if slackClient.IsConfigured() {
		notifier.Register(slackClient)
	}
	teamsClient := client.NewTeamsClient(cfg.Teams)
	if teamsClient.IsConfigured() {
		notifier.Register(teamsClient)
	}
	emailClient := client.NewEmailClient(cfg.Email)
	if emailClient.IsConfigured() {
		notifier.Register(emailClient)
	}
	notifier.Register(service.NewWebhookChannel(pg))

	// --- 실행 버스 (KAFKA_BROKERS 설정 시 Kafka, 아니면 프로세스 내 채널) ---
	var publisher bus.Publisher
	var consumer bus.Consumer
	if cfg.Bus.KafkaBrokers != "" {
		kp, err := bus.NewKafkaPublisher(cfg.Bus)
		if err != nil {
			log.Fatalf("failed to init kafka publisher: %v", err)
		}
		kc, err := bus.NewKafkaConsumer(cfg.Bus)
		if err != nil {
			log.Fatalf("failed to init kafka consumer: %v", err)
		}
		publisher, consumer = kp, kc
	} else {
		local := bus.NewLocalBus()
		publisher, consumer = local, local
	}
	defer publisher.Close()
	defer consumer.Close()

	// --- 서비스 ---
	var detector *service.Detector
	if knowledge != nil {
		detector = service.NewDetector(cfg.Monitor, cfg.Alert, pg, agentClient, suppressor, artifacts, knowledge, notifier)
	} else {
		detector = service.NewDetector(cfg.Monitor, cfg.Alert, pg, agentClient, suppressor, artifacts, nil, notifier)
	}
	approval := service.NewApprovalService(pg, publisher, notifier, suppressor)
	executor := service.NewExecutor(pg, agentClient, artifacts, notifier, suppressor, consumer)
	webhookSvc := service.NewWebhookService(pg)

	authSvc, err := service.NewAuthService(pg, cfg.Auth)
	if err != nil {
		log.Fatalf("failed to init auth service: %v", err)
	}
	if err := authSvc.EnsureOperator(ctx, os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatalf("failed to ensure admin operator: %v", err)
	}

	// --- 백그라운드 워커 ---
	go detector.Start(ctx)
	go executor.Run(ctx)
	go approval.StartRepublisher(ctx, cfg.Monitor.Interval)

	// --- HTTP ---
	router := gin.Default()
	router.Use(handler.CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/ping", handler.Ping)
	router.GET("/", handler.Root)

	callbackHandler := handler.NewCallbackHandler(approval, cfg.Slack.SigningSecret, cfg.Callback.SigningSecret)
	router.POST("/callbacks/slack", callbackHandler.SlackInteraction)
	router.POST("/callbacks/decision", callbackHandler.Decision)
	router.GET("/alerts/:id/decide", callbackHandler.DecideLink)

	accessTTL, _ := time.ParseDuration(cfg.Auth.JWTAccessTTL)
	authHandler := handler.NewAuthHandler(authSvc, accessTTL)
	router.POST("/api/auth/login", authHandler.Login)

	api := router.Group("/api")
	api.Use(handler.AuthMiddleware(authSvc))
	{
		api.GET("/auth/me", authHandler.Me)

		alertHandler := handler.NewAlertHandler(pg, approval, artifacts)
		api.GET("/alerts", alertHandler.ListAlerts)
		api.GET("/alerts/:id", alertHandler.GetAlert)
		api.GET("/alerts/:id/diagnosis", alertHandler.GetDiagnosis)
		api.GET("/alerts/:id/execution-log", alertHandler.GetExecutionLog)
		api.POST("/alerts/:id/decision", alertHandler.DecideAlert)

		webhookHandler := handler.NewWebhookSettingsHandler(webhookSvc)
		api.GET("/settings/webhooks", webhookHandler.ListWebhookConfigs)
		api.GET("/settings/webhooks/:id", webhookHandler.GetWebhookConfig)
		api.POST("/settings/webhooks", webhookHandler.CreateWebhookConfig)
		api.PUT("/settings/webhooks/:id", webhookHandler.UpdateWebhookConfig)
		api.DELETE("/settings/webhooks/:id", webhookHandler.DeleteWebhookConfig)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Printf("server listening addr=%s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
