package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"campusvoice/backend/internal/api/handler"
	"campusvoice/backend/internal/badge"
	"campusvoice/backend/internal/comment"
	"campusvoice/backend/internal/complaint"
	"campusvoice/backend/internal/config"
	"campusvoice/backend/internal/localization"
	"campusvoice/backend/internal/notify"
	"campusvoice/backend/internal/notifyhub"
	"campusvoice/backend/internal/reconcile"
	"campusvoice/backend/internal/storage"
	"campusvoice/backend/internal/telegram"
	"campusvoice/backend/internal/vote"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// adminAlerter is satisfied by both the Telegram alerter and telegram.Nop.
type adminAlerter interface {
	complaint.Alerter
	reconcile.Alerter
}

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Міграції (Створення таблиць)
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("INFO: database and Redis connections established, migrations complete")
	return db, rdb
}

func main() {
	log.Println("Starting CampusVoice Backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(ctx, cfg)
	s := storage.NewStorageService(db, rdb)

	localizer, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		log.Printf("WARNING: locales not loaded from %s, using bundled: %v", cfg.LocalesDir, err)
		localizer = localization.Default()
	}

	// 2. Сервіси
	emitter := notify.NewEmitter(s, localizer, cfg.DefaultLang)
	awarder := badge.NewAwarder(s, emitter)

	var alerter adminAlerter = telegram.Nop{}
	if cfg.TelegramBotToken != "" {
		botService, err := telegram.NewBotService(cfg.TelegramBotToken, cfg.TelegramAdminChatID, s, localizer, cfg.DefaultLang)
		if err != nil {
			log.Printf("ERROR: Telegram bot not started, admin alerts disabled: %v", err)
		} else {
			alerter = botService.Alerter
			go botService.Run(ctx)
		}
	} else {
		log.Println("INFO: TELEGRAM_BOT_TOKEN not set, admin alerts disabled")
	}

	reconciler := reconcile.NewService(s)
	hub := notifyhub.NewManagerService(s)

	// 3. Запуск основних Goroutines
	go hub.Run(ctx)
	go reconcile.NewSweeper(reconciler, cfg.ReconcileInterval, alerter).Run(ctx)

	// 4. Налаштування Gin та роутингу
	h := &handler.Handler{
		Users:      s,
		Tokens:     handler.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Complaints: complaint.NewService(s, emitter, awarder, alerter),
		Comments:   comment.NewService(s, emitter, awarder),
		Votes:      vote.NewService(s, emitter, awarder),
		Badges:     awarder,
		Inbox:      emitter,
		Reconcile:  reconciler,
		Hub:        hub,
		Dev:        cfg.IsDevelopment(),
	}

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        handler.NewRouter(h, cfg.CORSOrigins),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: graceful shutdown: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("WARNING: closing Redis: %v", err)
	}
}
